package models

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// EventType classifies a transaction event.
type EventType string

const (
	EventOrderPlaced    EventType = "ORDER_PLACED"
	EventOrderCancelled EventType = "ORDER_CANCELLED"
	EventTradeExecuted  EventType = "TRADE_EXECUTED"
)

// Valid reports whether t is one of the three known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventOrderPlaced, EventOrderCancelled, EventTradeExecuted:
		return true
	}
	return false
}

// TransactionEvent is a single order-lifecycle event as reported by the venue.
// Events are immutable once parsed; all detection operates on copies of the
// batch, never on mutated state.
//
// Price is carried as an exact decimal. The textual form is significant:
// "100.50" and "100.5" are the same number but distinct event payloads, and
// both the fingerprint and the JSON wire preserve the distinction (see Price
// and events.Fingerprint).
type TransactionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	AccountID string    `json:"account_id"`
	ProductID string    `json:"product_id"`
	Side      Side      `json:"side"`
	Price     Price     `json:"price"`
	Quantity  int64     `json:"quantity"`
	EventType EventType `json:"event_type"`
}

// Validate checks the event-level invariants: non-empty identifiers,
// strictly positive price and quantity, known side and event type.
func (e TransactionEvent) Validate() error {
	if strings.TrimSpace(e.AccountID) == "" {
		return fmt.Errorf("account_id is empty")
	}
	if strings.TrimSpace(e.ProductID) == "" {
		return fmt.Errorf("product_id is empty")
	}
	if !e.Side.Valid() {
		return fmt.Errorf("invalid side %q", e.Side)
	}
	if !e.EventType.Valid() {
		return fmt.Errorf("invalid event_type %q", e.EventType)
	}
	if !e.Price.IsPositive() {
		return fmt.Errorf("price must be strictly positive, got %s", e.Price.Text())
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be strictly positive, got %d", e.Quantity)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is zero")
	}
	return nil
}
