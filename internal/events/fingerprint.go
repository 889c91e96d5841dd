package events

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Fingerprint computes a 64-char lowercase hex SHA-256 over the
// order-independent canonical form of the batch: each event is reduced to a
// tuple line, the lines are sorted, then hashed. Identical event sets hash
// identically regardless of traversal order; any field difference in any
// event changes the digest.
//
// The price contributes its exact source text (models.Price keeps the parsed
// literal), so a payload carrying "100.50" fingerprints differently from one
// carrying "100.5".
func Fingerprint(evts []models.TransactionEvent) string {
	lines := make([]string, len(evts))
	for i, ev := range evts {
		lines[i] = canonicalLine(ev)
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalLine joins the event fields with a unit separator, which cannot
// appear in validated identifiers, so distinct tuples never collide.
func canonicalLine(ev models.TransactionEvent) string {
	return strings.Join([]string{
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ev.AccountID,
		ev.ProductID,
		string(ev.Side),
		ev.Price.Text(),
		strconv.FormatInt(ev.Quantity, 10),
		string(ev.EventType),
	}, "\x1f")
}
