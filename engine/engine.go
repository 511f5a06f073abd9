// Package engine implements price-time priority matching against a single
// instrument's order book.
package engine

import (
	"time"

	"github.com/kgsahil/OrderBook/book"
	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/events"
)

// MatchingEngine executes one order at a time against its book, emitting
// events and resting any Limit residual. It is not safe for concurrent use
// by more than one goroutine — the caller (the order processor) owns
// serialization, per the single-threaded-matching-per-instrument design.
type MatchingEngine struct {
	book      *book.OrderBook
	publisher *events.Publisher
	now       func() time.Time
}

// New constructs a matching engine bound to a single instrument's book and
// event publisher.
func New(b *book.OrderBook, pub *events.Publisher) *MatchingEngine {
	return &MatchingEngine{book: b, publisher: pub, now: time.Now}
}

// canMatch returns true for Market orders; for Limit Buy it returns
// takerPrice >= makerPrice; for Limit Sell it returns takerPrice <=
// makerPrice.
func canMatch(takerSide core.Side, takerPrice, makerPrice core.Price, orderType core.OrderType) bool {
	if orderType == core.Market {
		return true
	}
	if takerSide == core.Buy {
		return takerPrice >= makerPrice
	}
	return takerPrice <= makerPrice
}

// Process matches order against the book under price-time priority. It
// returns the trades produced, in the order they occurred, which is also
// the order in which their Trade events were published (Ack precedes every
// Trade for this order, per the event-ordering invariant).
func (e *MatchingEngine) Process(order *core.Order) []core.Trade {
	order.Timestamp = e.now()

	if e.book == nil {
		e.publisher.Publish(core.Event{Type: core.Reject, OrderID: order.OrderID, Timestamp: order.Timestamp})
		return nil
	}

	e.publisher.Publish(core.Event{Type: core.Ack, OrderID: order.OrderID, Timestamp: order.Timestamp})

	order.ApplySentinel()

	var trades []core.Trade
	contraSide := core.Sell
	if order.Side == core.Sell {
		contraSide = core.Buy
	}

	for order.Quantity > 0 {
		makerPrice, ok := bestContraPrice(e.book, contraSide)
		if !ok {
			break
		}
		if !canMatch(order.Side, order.Price, makerPrice, order.Type) {
			break
		}

		level := bestContraLevel(e.book, contraSide)
		for order.Quantity > 0 && level != nil && !level.Empty() {
			maker := level.Front()
			tradeQty := minQty(order.Quantity, maker.Quantity)

			trade := core.Trade{
				MakerID:   maker.OrderID,
				TakerID:   order.OrderID,
				Price:     maker.Price,
				Quantity:  tradeQty,
				Timestamp: order.Timestamp,
			}
			trades = append(trades, trade)
			e.publisher.Publish(core.Event{
				Type:      core.TradeEvent,
				OrderID:   order.OrderID,
				Trade:     &trade,
				Timestamp: order.Timestamp,
			})

			maker.Quantity -= tradeQty
			order.Quantity -= tradeQty

			if maker.Quantity == 0 {
				e.book.EraseFrontAtLevel(contraSide, maker.Price, maker.OrderID)
			}
		}
	}

	if order.Type == core.Market {
		order.Quantity = 0
		return trades
	}

	if order.Quantity > 0 && order.Type == core.Limit {
		e.book.AddOrder(order)
	}

	return trades
}

func bestContraPrice(b *book.OrderBook, contraSide core.Side) (core.Price, bool) {
	if contraSide == core.Sell {
		return b.BestAsk()
	}
	return b.BestBid()
}

func bestContraLevel(b *book.OrderBook, contraSide core.Side) book.Level {
	if contraSide == core.Sell {
		return b.BestAskLevel()
	}
	return b.BestBidLevel()
}

func minQty(a, b core.Quantity) core.Quantity {
	if a < b {
		return a
	}
	return b
}
