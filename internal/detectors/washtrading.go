package detectors

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rawblock/surveillance-engine/internal/events"
	"github.com/rawblock/surveillance-engine/pkg/models"
)

// Wash-trading detection: rapid self-offsetting buy/sell activity producing
// volume without a net position change. A sliding window starts at every
// trade; a window is suspicious when it has enough trades on each side,
// enough total volume, and a high enough side-alternation rate. Overlapping
// windows each emit; there is no deduplication across starts.

// WashTradingConfig holds the admission thresholds. All fields must be
// strictly positive.
type WashTradingConfig struct {
	MinBuyTrades             int
	MinSellTrades            int
	MinAlternationPercentage float64
	MinTotalVolume           int64
	WindowSize               time.Duration
	// PriceChangeThreshold gates the optional price_change_percentage field
	// on emitted sequences; it does not gate emission itself.
	PriceChangeThreshold float64
}

// DefaultWashTradingConfig returns the production defaults.
func DefaultWashTradingConfig() WashTradingConfig {
	return WashTradingConfig{
		MinBuyTrades:             3,
		MinSellTrades:            3,
		MinAlternationPercentage: 60.0,
		MinTotalVolume:           10_000,
		WindowSize:               30 * time.Minute,
		PriceChangeThreshold:     1.0,
	}
}

// Validate rejects non-positive thresholds.
func (c WashTradingConfig) Validate() error {
	if c.MinBuyTrades <= 0 {
		return fmt.Errorf("min_buy_trades must be strictly positive, got %d", c.MinBuyTrades)
	}
	if c.MinSellTrades <= 0 {
		return fmt.Errorf("min_sell_trades must be strictly positive, got %d", c.MinSellTrades)
	}
	if c.MinAlternationPercentage <= 0 {
		return fmt.Errorf("min_alternation_percentage must be strictly positive, got %v", c.MinAlternationPercentage)
	}
	if c.MinTotalVolume <= 0 {
		return fmt.Errorf("min_total_volume must be strictly positive, got %d", c.MinTotalVolume)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be strictly positive, got %v", c.WindowSize)
	}
	if c.PriceChangeThreshold <= 0 {
		return fmt.Errorf("price_change_threshold must be strictly positive, got %v", c.PriceChangeThreshold)
	}
	return nil
}

// WashTradingDetector finds alternating self-offsetting trade windows.
type WashTradingDetector struct {
	cfg WashTradingConfig
}

// NewWashTradingDetector builds a detector, validating the config.
func NewWashTradingDetector(cfg WashTradingConfig) (*WashTradingDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wash trading config: %w", err)
	}
	return &WashTradingDetector{cfg: cfg}, nil
}

func (d *WashTradingDetector) Name() string { return "wash_trading" }

func (d *WashTradingDetector) Description() string {
	return "Detects rapid self-offsetting buy/sell activity in a sliding time window"
}

// FilterEvents keeps trade executions only.
func (d *WashTradingDetector) FilterEvents(evts []models.TransactionEvent) []models.TransactionEvent {
	out := make([]models.TransactionEvent, 0, len(evts))
	for _, ev := range evts {
		if ev.EventType == models.EventTradeExecuted {
			out = append(out, ev)
		}
	}
	return out
}

// Detect groups the (trade-only) batch and slides a window per group.
func (d *WashTradingDetector) Detect(evts []models.TransactionEvent) []models.SuspiciousSequence {
	return detectPerGroup(evts, d.detectGroup)
}

func (d *WashTradingDetector) detectGroup(key events.GroupKey, trades []models.TransactionEvent) []models.SuspiciousSequence {
	var seqs []models.SuspiciousSequence

	for i := range trades {
		hi := trades[i].Timestamp.Add(d.cfg.WindowSize)
		j := i
		for j < len(trades) && !trades[j].Timestamp.After(hi) {
			j++
		}
		window := trades[i:j]
		if seq, ok := d.evaluateWindow(key, window); ok {
			seqs = append(seqs, seq)
		}
	}
	return seqs
}

// evaluateWindow applies the admission tests in order and builds the
// sequence when all pass.
func (d *WashTradingDetector) evaluateWindow(key events.GroupKey, window []models.TransactionEvent) (models.SuspiciousSequence, bool) {
	var seq models.SuspiciousSequence
	if len(window) < d.cfg.MinBuyTrades+d.cfg.MinSellTrades {
		return seq, false
	}

	var buys, sells, switches int
	var buyQty, sellQty, totalQty int64
	for k, tr := range window {
		if tr.Side == models.SideBuy {
			buys++
			buyQty += tr.Quantity
		} else {
			sells++
			sellQty += tr.Quantity
		}
		totalQty += tr.Quantity
		if k > 0 && tr.Side != window[k-1].Side {
			switches++
		}
	}
	if buys < d.cfg.MinBuyTrades || sells < d.cfg.MinSellTrades {
		return seq, false
	}
	if totalQty < d.cfg.MinTotalVolume {
		return seq, false
	}
	alternation := float64(switches) / float64(len(window)-1) * 100
	if alternation < d.cfg.MinAlternationPercentage {
		return seq, false
	}

	seq = models.SuspiciousSequence{
		DetectionType:         models.DetectionWashTrading,
		AccountID:             key.AccountID,
		ProductID:             key.ProductID,
		StartTimestamp:        window[0].Timestamp,
		EndTimestamp:          window[len(window)-1].Timestamp,
		TotalBuyQty:           buyQty,
		TotalSellQty:          sellQty,
		AlternationPercentage: &alternation,
	}

	// Price change over the window is reported only when it meets the
	// threshold. A zero first price leaves it undefined but never
	// suppresses the sequence itself.
	first := window[0].Price.Decimal
	last := window[len(window)-1].Price.Decimal
	if !first.IsZero() {
		change, _ := last.Sub(first).Abs().Div(first).Mul(decimal.NewFromInt(100)).Float64()
		if change >= d.cfg.PriceChangeThreshold {
			seq.PriceChangePercentage = &change
		}
	}
	return seq, true
}
