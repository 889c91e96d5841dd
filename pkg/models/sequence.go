package models

import "time"

// DetectionType tags a SuspiciousSequence variant.
type DetectionType string

const (
	DetectionLayering    DetectionType = "LAYERING"
	DetectionWashTrading DetectionType = "WASH_TRADING"
)

// SuspiciousSequence is one detected manipulation pattern within a single
// (account, product) group. It is a tagged variant: the common fields are
// always present, the per-variant fields are populated only for the matching
// DetectionType and omitted from JSON otherwise.
type SuspiciousSequence struct {
	DetectionType  DetectionType `json:"detection_type"`
	AccountID      string        `json:"account_id"`
	ProductID      string        `json:"product_id"`
	StartTimestamp time.Time     `json:"start_timestamp"`
	EndTimestamp   time.Time     `json:"end_timestamp"`
	TotalBuyQty    int64         `json:"total_buy_qty"`
	TotalSellQty   int64         `json:"total_sell_qty"`

	// LAYERING only: the spoofed side, how many same-side orders were
	// cancelled, and the placement timestamps that formed the sequence.
	Side               Side        `json:"side,omitempty"`
	NumCancelledOrders int         `json:"num_cancelled_orders,omitempty"`
	OrderTimestamps    []time.Time `json:"order_timestamps,omitempty"`

	// WASH_TRADING only. PriceChangePercentage is set only when the price
	// move over the window met the configured optional threshold.
	AlternationPercentage *float64 `json:"alternation_percentage,omitempty"`
	PriceChangePercentage *float64 `json:"price_change_percentage,omitempty"`
}
