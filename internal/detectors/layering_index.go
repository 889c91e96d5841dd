package detectors

import (
	"sort"
	"time"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

// groupIndex accelerates window extraction for large groups. For each
// (event type, side) it holds the group positions of matching events in
// group order, with the parallel timestamp array used for binary search.
// The group is time-sorted, so both arrays are nondecreasing in time.
type groupIndex struct {
	positions map[typeSide][]int
	times     map[typeSide][]time.Time
}

type typeSide struct {
	et   models.EventType
	side models.Side
}

func newGroupIndex(group []models.TransactionEvent) *groupIndex {
	idx := &groupIndex{
		positions: make(map[typeSide][]int),
		times:     make(map[typeSide][]time.Time),
	}
	for p, ev := range group {
		key := typeSide{et: ev.EventType, side: ev.Side}
		idx.positions[key] = append(idx.positions[key], p)
		idx.times[key] = append(idx.times[key], ev.Timestamp)
	}
	return idx
}

// window returns positions of (et, side) events with timestamps in [lo, hi]
// at or after position from. The time window is inclusive at both ends; the
// binary searches bracket it as [first >= lo, first > hi).
func (idx *groupIndex) window(et models.EventType, side models.Side, lo, hi time.Time, from int) []int {
	key := typeSide{et: et, side: side}
	times := idx.times[key]
	positions := idx.positions[key]
	if len(times) == 0 {
		return nil
	}

	start := sort.Search(len(times), func(i int) bool { return !times[i].Before(lo) })
	end := sort.Search(len(times), func(i int) bool { return times[i].After(hi) })
	if start >= end {
		return nil
	}

	window := positions[start:end]
	if from > 0 {
		// Positions ascend with time, so the from cutoff is another search.
		cut := sort.Search(len(window), func(i int) bool { return window[i] >= from })
		window = window[cut:]
	}
	if len(window) == 0 {
		return nil
	}
	return window
}
