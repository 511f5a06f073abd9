// Package core defines the shared order, trade, and event types used by
// every layer of the matching engine.
package core

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the direction of an order.
type Side uint8

const (
	// Buy indicates a bid order.
	Buy Side = iota
	// Sell indicates an ask order.
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "B"
	}
	return "S"
}

// OrderType represents the execution style for an order.
type OrderType uint8

const (
	// Limit orders rest on the book until filled or canceled.
	Limit OrderType = iota
	// Market orders consume available liquidity immediately and never rest.
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "L"
	}
	return "M"
}

// Price is expressed in integer ticks to avoid floating-point comparison
// hazards in the matching predicate.
type Price int64

// MarketBuySentinel and MarketSellSentinel stand in for a Market order's
// price so the matching predicate (canMatch) stays a plain price
// comparison regardless of order type.
const (
	MarketBuySentinel  Price = math.MaxInt64
	MarketSellSentinel Price = math.MinInt64 + 1
)

// Quantity is expressed in integer lots.
type Quantity int64

// OrderID uniquely identifies an order within this process.
type OrderID uint64

// SymbolID identifies an instrument's order book.
type SymbolID uint32

// Order represents a client's trading intent. Quantity is mutated in place
// by the matching engine as the order is filled.
type Order struct {
	OrderID   OrderID
	SymbolID  SymbolID
	Side      Side
	Type      OrderType
	Price     Price // sentinel for Market orders; see canMatch
	Quantity  Quantity
	Timestamp time.Time // ingress time; time priority is queue position, not this field
}

// Valid reports whether a resting Limit order satisfies the book's
// invariants (price > 0, quantity > 0). For Market orders only quantity > 0
// is checked, since they never rest and their price is a sentinel.
func (o *Order) Valid() bool {
	if o.Quantity <= 0 {
		return false
	}
	if o.Type == Limit && o.Price <= 0 {
		return false
	}
	return true
}

// ApplySentinel sets the matching-predicate price for a Market order so
// that canMatch's comparison is trivially satisfied, per the spec's
// price-sentinel simplification.
func (o *Order) ApplySentinel() {
	if o.Type != Market {
		return
	}
	if o.Side == Buy {
		o.Price = MarketBuySentinel
	} else {
		o.Price = MarketSellSentinel
	}
}

// Trade is an immutable execution record. Price is always the resting
// maker's price.
type Trade struct {
	MakerID   OrderID
	TakerID   OrderID
	Price     Price
	Quantity  Quantity
	Timestamp time.Time
}

// EventType enumerates the tagged events the engine emits.
type EventType uint8

const (
	// Ack acknowledges that an order was accepted for processing.
	Ack EventType = iota
	// TradeEvent carries a completed execution.
	TradeEvent
	// CancelAck acknowledges a successful cancel.
	CancelAck
	// CancelReject reports a cancel for an order that could not be found.
	CancelReject
	// Reject reports that an order could not be processed at all.
	Reject
)

func (t EventType) String() string {
	switch t {
	case Ack:
		return "Ack"
	case TradeEvent:
		return "Trade"
	case CancelAck:
		return "CancelAck"
	case CancelReject:
		return "CancelReject"
	case Reject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// Event is a tagged record pushed onto the outbound queue. Trade is only
// populated when Type == TradeEvent.
type Event struct {
	Type      EventType
	OrderID   OrderID
	Trade     *Trade
	Timestamp time.Time
}

// Instrument carries metadata for one symbol. It is informational only and
// never consulted by matching.
type Instrument struct {
	SymbolID     SymbolID
	Ticker       string
	Description  string
	Industry     string
	InitialPrice decimal.Decimal
	CreatedAt    time.Time
}
