package detectors

import (
	"testing"
	"time"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

func trade(offset time.Duration, side models.Side, qty int64, price string) models.TransactionEvent {
	return models.TransactionEvent{
		Timestamp: base.Add(offset),
		AccountID: "ACC-1",
		ProductID: "PROD-X",
		Side:      side,
		Price:     models.MustPrice(price),
		Quantity:  qty,
		EventType: models.EventTradeExecuted,
	}
}

func mustWash(t *testing.T) *WashTradingDetector {
	t.Helper()
	d, err := NewWashTradingDetector(DefaultWashTradingConfig())
	if err != nil {
		t.Fatalf("Failed to build wash trading detector: %v", err)
	}
	return d
}

// alternating emits n trades one minute apart, strictly alternating sides,
// starting with a buy.
func alternating(n int, qty int64, price string) []models.TransactionEvent {
	out := make([]models.TransactionEvent, 0, n)
	for i := 0; i < n; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		out = append(out, trade(time.Duration(i)*time.Minute, side, qty, price))
	}
	return out
}

func TestWashTrading_DetectsAlternatingWindow(t *testing.T) {
	d := mustWash(t)
	seqs := d.Detect(alternating(6, 2000, "100"))

	if len(seqs) != 1 {
		t.Fatalf("Expected 1 sequence. Got: %d", len(seqs))
	}
	seq := seqs[0]
	if seq.DetectionType != models.DetectionWashTrading {
		t.Errorf("Expected detection type WASH_TRADING. Got: %s", seq.DetectionType)
	}
	if seq.TotalBuyQty != 6000 || seq.TotalSellQty != 6000 {
		t.Errorf("Expected 6000/6000 qty split. Got: %d/%d", seq.TotalBuyQty, seq.TotalSellQty)
	}
	if seq.AlternationPercentage == nil || *seq.AlternationPercentage != 100 {
		t.Errorf("Expected 100%% alternation. Got: %v", seq.AlternationPercentage)
	}
	if seq.PriceChangePercentage != nil {
		t.Errorf("Expected no price change field for a flat price. Got: %v", *seq.PriceChangePercentage)
	}
	if !seq.StartTimestamp.Equal(base) || !seq.EndTimestamp.Equal(base.Add(5*time.Minute)) {
		t.Errorf("Unexpected window bounds: %v .. %v", seq.StartTimestamp, seq.EndTimestamp)
	}
	if seq.NumCancelledOrders != 0 {
		t.Errorf("Wash trading rows must carry a zero cancel count. Got: %d", seq.NumCancelledOrders)
	}
}

func TestWashTrading_OverlappingWindowsEachEmit(t *testing.T) {
	d := mustWash(t)
	// Seven alternating trades: the windows starting at trade 0 and trade 1
	// both hold enough trades on each side.
	seqs := d.Detect(alternating(7, 2000, "100"))
	if len(seqs) != 2 {
		t.Fatalf("Expected 2 overlapping sequences. Got: %d", len(seqs))
	}
	if seqs[0].StartTimestamp.Equal(seqs[1].StartTimestamp) {
		t.Errorf("Overlapping sequences must have distinct window starts")
	}
}

func TestWashTrading_PerSideMinimums(t *testing.T) {
	d := mustWash(t)
	// Six trades but only two sells.
	evts := alternating(6, 2000, "100")
	evts[5].Side = models.SideBuy
	if seqs := d.Detect(evts); len(seqs) != 0 {
		t.Errorf("Expected no sequence with 2 sells. Got: %d", len(seqs))
	}
}

func TestWashTrading_AlternationThreshold(t *testing.T) {
	d := mustWash(t)
	// BBB SSS: one switch out of five transitions, 20% alternation.
	evts := []models.TransactionEvent{
		trade(0, models.SideBuy, 2000, "100"),
		trade(1*time.Minute, models.SideBuy, 2000, "100"),
		trade(2*time.Minute, models.SideBuy, 2000, "100"),
		trade(3*time.Minute, models.SideSell, 2000, "100"),
		trade(4*time.Minute, models.SideSell, 2000, "100"),
		trade(5*time.Minute, models.SideSell, 2000, "100"),
	}
	if seqs := d.Detect(evts); len(seqs) != 0 {
		t.Errorf("Expected no sequence at 20%% alternation. Got: %d", len(seqs))
	}
}

func TestWashTrading_VolumeThresholdBoundary(t *testing.T) {
	d := mustWash(t)
	// Total exactly at the minimum qualifies.
	evts := alternating(6, 1000, "100")
	evts[5].Quantity = 5000 // 5*1000 + 5000 = 10000
	if seqs := d.Detect(evts); len(seqs) != 1 {
		t.Errorf("Expected a sequence at exactly the volume minimum. Got: %d", len(seqs))
	}

	below := alternating(6, 1000, "100")
	below[5].Quantity = 4999
	if seqs := d.Detect(below); len(seqs) != 0 {
		t.Errorf("Expected no sequence below the volume minimum. Got: %d", len(seqs))
	}
}

func TestWashTrading_WindowEdgeInclusive(t *testing.T) {
	d := mustWash(t)
	// Sixth trade exactly at window start + 30m still belongs to the window.
	evts := alternating(5, 2000, "100")
	evts = append(evts, trade(30*time.Minute, models.SideSell, 2000, "100"))
	if seqs := d.Detect(evts); len(seqs) != 1 {
		t.Errorf("Expected the trade on the window edge to count. Got %d sequences", len(seqs))
	}
}

func TestWashTrading_PriceChangeReportedOnlyAtThreshold(t *testing.T) {
	d := mustWash(t)

	// 0.5% move stays below the 1% reporting threshold.
	small := alternating(6, 2000, "100")
	small[5].Price = models.MustPrice("100.5")
	seqs := d.Detect(small)
	if len(seqs) != 1 {
		t.Fatalf("Expected 1 sequence. Got: %d", len(seqs))
	}
	if seqs[0].PriceChangePercentage != nil {
		t.Errorf("Expected price change below threshold to be omitted. Got: %v", *seqs[0].PriceChangePercentage)
	}

	// 2% move is reported.
	big := alternating(6, 2000, "100")
	big[5].Price = models.MustPrice("102")
	seqs = d.Detect(big)
	if len(seqs) != 1 {
		t.Fatalf("Expected 1 sequence. Got: %d", len(seqs))
	}
	if seqs[0].PriceChangePercentage == nil {
		t.Fatalf("Expected price change at 2%% to be reported")
	}
	if got := *seqs[0].PriceChangePercentage; got < 1.999 || got > 2.001 {
		t.Errorf("Expected ~2%% price change. Got: %v", got)
	}
}

func TestWashTrading_ZeroFirstPriceLeavesChangeUndefined(t *testing.T) {
	d := mustWash(t)
	evts := alternating(6, 2000, "100")
	evts[0].Price = models.MustPrice("0")
	seqs := d.Detect(evts)
	if len(seqs) != 1 {
		t.Fatalf("Expected the sequence to survive a zero base price. Got: %d", len(seqs))
	}
	if seqs[0].PriceChangePercentage != nil {
		t.Errorf("Expected undefined price change on a zero base price")
	}
}

func TestWashTrading_FilterKeepsTradesOnly(t *testing.T) {
	d := mustWash(t)
	evts := basicPattern() // placements, cancels, one trade
	filtered := d.FilterEvents(evts)
	if len(filtered) != 1 {
		t.Errorf("Expected only the trade to survive filtering. Got: %d", len(filtered))
	}
}

func TestWashTrading_ConfigValidation(t *testing.T) {
	bad := DefaultWashTradingConfig()
	bad.MinTotalVolume = 0
	if _, err := NewWashTradingDetector(bad); err == nil {
		t.Errorf("Expected zero volume minimum to be rejected")
	}
}
