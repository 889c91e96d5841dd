package events

import (
	"sort"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

// GroupKey partitions a batch. All detection is group-local: patterns never
// span accounts or instruments.
type GroupKey struct {
	AccountID string
	ProductID string
}

// Group partitions events by (account, product) and sorts each group by
// timestamp ascending. The sort is stable so timestamp ties retain input
// order. Empty input yields an empty map.
func Group(evts []models.TransactionEvent) map[GroupKey][]models.TransactionEvent {
	groups := make(map[GroupKey][]models.TransactionEvent)
	for _, ev := range evts {
		key := GroupKey{AccountID: ev.AccountID, ProductID: ev.ProductID}
		groups[key] = append(groups[key], ev)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
	}
	return groups
}

// SortedKeys returns the group keys in deterministic order, for callers that
// need reproducible traversal (reports, tests).
func SortedKeys(groups map[GroupKey][]models.TransactionEvent) []GroupKey {
	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AccountID != keys[j].AccountID {
			return keys[i].AccountID < keys[j].AccountID
		}
		return keys[i].ProductID < keys[j].ProductID
	})
	return keys
}
