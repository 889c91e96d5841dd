package detectors

import (
	"fmt"
	"time"

	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Layering / spoofing detection.
//
// The pattern: a burst of same-side placements, followed by their
// cancellation, followed by an opposite-side execution that the false book
// pressure induced. Three windows bound the pattern, all inclusive at both
// ends:
//
//	placements within ordersWindow of the first placement,
//	cancels within cancelWindow of the last placement,
//	the opposite trade within oppositeTradeWindow of the last cancel.
//
// A placement is consumed by at most one emitted sequence: after an emit the
// scan jumps past the last placement of the sequence. Cancels and trades are
// not consumed and may contribute to adjacent sequences whose placement sets
// are disjoint.

// indexThreshold is the group size at which the per-group (type, side) index
// replaces the linear scan. Tuning parameter, not a contract: both paths
// produce identical sequences.
const indexThreshold = 100

// LayeringConfig bounds the three pattern windows. All must be strictly positive.
type LayeringConfig struct {
	OrdersWindow        time.Duration
	CancelWindow        time.Duration
	OppositeTradeWindow time.Duration
}

// DefaultLayeringConfig returns the production defaults.
func DefaultLayeringConfig() LayeringConfig {
	return LayeringConfig{
		OrdersWindow:        10 * time.Second,
		CancelWindow:        5 * time.Second,
		OppositeTradeWindow: 2 * time.Second,
	}
}

// Validate rejects non-positive windows.
func (c LayeringConfig) Validate() error {
	if c.OrdersWindow <= 0 {
		return fmt.Errorf("orders_window must be strictly positive, got %v", c.OrdersWindow)
	}
	if c.CancelWindow <= 0 {
		return fmt.Errorf("cancel_window must be strictly positive, got %v", c.CancelWindow)
	}
	if c.OppositeTradeWindow <= 0 {
		return fmt.Errorf("opposite_trade_window must be strictly positive, got %v", c.OppositeTradeWindow)
	}
	return nil
}

// LayeringDetector finds place/cancel/opposite-execution sequences.
type LayeringDetector struct {
	cfg LayeringConfig
}

// NewLayeringDetector builds a detector, validating the config.
func NewLayeringDetector(cfg LayeringConfig) (*LayeringDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("layering config: %w", err)
	}
	return &LayeringDetector{cfg: cfg}, nil
}

func (d *LayeringDetector) Name() string { return "layering" }

func (d *LayeringDetector) Description() string {
	return "Detects spoofing via same-side place/cancel bursts followed by an opposite-side execution"
}

// FilterEvents keeps the three event types layering inspects.
func (d *LayeringDetector) FilterEvents(evts []models.TransactionEvent) []models.TransactionEvent {
	out := make([]models.TransactionEvent, 0, len(evts))
	for _, ev := range evts {
		switch ev.EventType {
		case models.EventOrderPlaced, models.EventOrderCancelled, models.EventTradeExecuted:
			out = append(out, ev)
		}
	}
	return out
}

// Detect groups the batch and scans each group.
func (d *LayeringDetector) Detect(evts []models.TransactionEvent) []models.SuspiciousSequence {
	return detectPerGroup(evts, d.detectGroup)
}

// detectGroup dispatches to the indexed or linear path by group size.
func (d *LayeringDetector) detectGroup(key events.GroupKey, group []models.TransactionEvent) []models.SuspiciousSequence {
	if len(group) >= indexThreshold {
		return d.scan(key, group, newGroupIndex(group))
	}
	return d.scan(key, group, nil)
}

// scan walks the group forward. idx may be nil, in which case window
// extraction falls back to linear scans over the group slice.
func (d *LayeringDetector) scan(key events.GroupKey, group []models.TransactionEvent, idx *groupIndex) []models.SuspiciousSequence {
	var seqs []models.SuspiciousSequence

	for i := 0; i < len(group); i++ {
		e0 := group[i]
		if e0.EventType != models.EventOrderPlaced {
			continue
		}
		side := e0.Side
		t0 := e0.Timestamp

		// 1. Same-side placements from the scan position within ordersWindow.
		placements := windowPositions(group, idx, models.EventOrderPlaced, side, t0, t0.Add(d.cfg.OrdersWindow), i)
		if len(placements) < 3 {
			continue
		}
		lastPlacement := placements[len(placements)-1]
		tL := group[lastPlacement].Timestamp

		// 2. Same-side cancels from t0 through cancelWindow past the last placement.
		cancels := windowPositions(group, idx, models.EventOrderCancelled, side, t0, tL.Add(d.cfg.CancelWindow), 0)
		if len(cancels) < 3 {
			continue
		}
		tC := group[cancels[len(cancels)-1]].Timestamp

		// 3. Earliest opposite-side execution within oppositeTradeWindow of the last cancel.
		trades := windowPositions(group, idx, models.EventTradeExecuted, side.Opposite(), tC, tC.Add(d.cfg.OppositeTradeWindow), 0)
		if len(trades) == 0 {
			continue
		}
		eT := group[trades[0]]

		// 4. Aggregate over [t0, trade timestamp], inclusive.
		seqs = append(seqs, d.emit(key, group, idx, side, t0, eT.Timestamp, placements))

		// 5. Consume the placements: jump past the last one. Non-placement
		// events between here and there are re-scanned on later iterations
		// only if they precede the jump target, which they do not.
		i = lastPlacement
	}
	return seqs
}

// emit aggregates the sequence window and builds the tagged record.
func (d *LayeringDetector) emit(
	key events.GroupKey,
	group []models.TransactionEvent,
	idx *groupIndex,
	side models.Side,
	start, end time.Time,
	placements []int,
) models.SuspiciousSequence {
	var spoofCancelQty, oppTradeQty int64
	var numCancelled int
	for _, p := range windowPositions(group, idx, models.EventOrderCancelled, side, start, end, 0) {
		spoofCancelQty += group[p].Quantity
		numCancelled++
	}
	for _, p := range windowPositions(group, idx, models.EventTradeExecuted, side.Opposite(), start, end, 0) {
		oppTradeQty += group[p].Quantity
	}

	orderTimestamps := make([]time.Time, len(placements))
	for i, p := range placements {
		orderTimestamps[i] = group[p].Timestamp
	}

	seq := models.SuspiciousSequence{
		DetectionType:      models.DetectionLayering,
		AccountID:          key.AccountID,
		ProductID:          key.ProductID,
		StartTimestamp:     start,
		EndTimestamp:       end,
		Side:               side,
		NumCancelledOrders: numCancelled,
		OrderTimestamps:    orderTimestamps,
	}
	if side == models.SideBuy {
		seq.TotalBuyQty = spoofCancelQty
		seq.TotalSellQty = oppTradeQty
	} else {
		seq.TotalSellQty = spoofCancelQty
		seq.TotalBuyQty = oppTradeQty
	}
	return seq
}

// inWindow reports lo <= ts <= hi, both ends inclusive.
func inWindow(ts, lo, hi time.Time) bool {
	return !ts.Before(lo) && !ts.After(hi)
}

// windowPositions returns the group positions of events matching (eventType,
// side) with timestamps in [lo, hi], at or after position from, in group
// order. It takes the indexed path when idx is non-nil and the linear path
// otherwise; the two are behavior-identical.
func windowPositions(group []models.TransactionEvent, idx *groupIndex, et models.EventType, side models.Side, lo, hi time.Time, from int) []int {
	if idx != nil {
		return idx.window(et, side, lo, hi, from)
	}
	var out []int
	for p := from; p < len(group); p++ {
		ev := group[p]
		if ev.EventType != et || ev.Side != side {
			continue
		}
		if ev.Timestamp.After(hi) {
			break // group is time-sorted
		}
		if inWindow(ev.Timestamp, lo, hi) {
			out = append(out, p)
		}
	}
	return out
}
