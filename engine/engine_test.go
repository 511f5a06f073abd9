package engine

import (
	"testing"

	"github.com/kgsahil/OrderBook/book"
	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/events"
	"github.com/kgsahil/OrderBook/queue"
)

func newTestEngine() (*MatchingEngine, *book.OrderBook, *queue.Ring[core.Event]) {
	b := book.New()
	q := queue.NewRing[core.Event](64)
	pub := events.NewPublisher(q)
	return New(b, pub), b, q
}

func drainEvents(q *queue.Ring[core.Event]) []core.Event {
	var out []core.Event
	for {
		evt, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, evt)
	}
}

// S1: empty cross — two non-crossing limits rest untouched.
func TestScenarioEmptyCross(t *testing.T) {
	e, b, _ := newTestEngine()

	bid := &core.Order{OrderID: 1, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 10}
	e.Process(bid)
	ask := &core.Order{OrderID: 2, Side: core.Sell, Type: core.Limit, Price: 101, Quantity: 5}
	e.Process(ask)

	bids := b.SnapshotBidsL2(0)
	asks := b.SnapshotAsksL2(0)
	if len(bids) != 1 || bids[0].Price != 100 || bids[0].TotalQty != 10 || bids[0].NumOrders != 1 {
		t.Fatalf("unexpected bids: %+v", bids)
	}
	if len(asks) != 1 || asks[0].Price != 101 || asks[0].TotalQty != 5 || asks[0].NumOrders != 1 {
		t.Fatalf("unexpected asks: %+v", asks)
	}
}

// S2: immediate partial fill, residual rests on the taker side.
func TestScenarioPartialFillRestsResidual(t *testing.T) {
	e, b, q := newTestEngine()

	e.Process(&core.Order{OrderID: 2, Side: core.Sell, Type: core.Limit, Price: 101, Quantity: 5})
	drainEvents(q)

	trades := e.Process(&core.Order{OrderID: 3, Side: core.Buy, Type: core.Limit, Price: 102, Quantity: 8})
	if len(trades) != 1 || trades[0].MakerID != 2 || trades[0].TakerID != 3 || trades[0].Price != 101 || trades[0].Quantity != 5 {
		t.Fatalf("unexpected trades: %+v", trades)
	}

	bids := b.SnapshotBidsL2(0)
	if len(bids) != 1 || bids[0].Price != 102 || bids[0].TotalQty != 3 {
		t.Fatalf("expected residual of 3 resting at 102, got %+v", bids)
	}
	if asks := b.SnapshotAsksL2(0); len(asks) != 0 {
		t.Fatalf("ask side should be fully drained, got %+v", asks)
	}

	evts := drainEvents(q)
	if len(evts) != 2 || evts[0].Type != core.Ack || evts[0].OrderID != 3 {
		t.Fatalf("expected Ack before Trade for taker, got %+v", evts)
	}
	if evts[1].Type != core.TradeEvent {
		t.Fatalf("expected second event to be a trade, got %+v", evts[1])
	}
}

// S3: a market order sweeps multiple price levels.
func TestScenarioMarketSweepsLevels(t *testing.T) {
	e, b, _ := newTestEngine()

	e.Process(&core.Order{OrderID: 1, Side: core.Sell, Type: core.Limit, Price: 101, Quantity: 5})
	e.Process(&core.Order{OrderID: 2, Side: core.Sell, Type: core.Limit, Price: 102, Quantity: 4})

	trades := e.Process(&core.Order{OrderID: 3, Side: core.Buy, Type: core.Market, Quantity: 7})
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d: %+v", len(trades), trades)
	}
	if trades[0].MakerID != 1 || trades[0].Price != 101 || trades[0].Quantity != 5 {
		t.Fatalf("unexpected first trade: %+v", trades[0])
	}
	if trades[1].MakerID != 2 || trades[1].Price != 102 || trades[1].Quantity != 2 {
		t.Fatalf("unexpected second trade: %+v", trades[1])
	}

	asks := b.SnapshotAsksL2(0)
	if len(asks) != 1 || asks[0].Price != 102 || asks[0].TotalQty != 2 {
		t.Fatalf("expected 2 remaining at 102, got %+v", asks)
	}
	if bids := b.SnapshotBidsL2(0); len(bids) != 0 {
		t.Fatalf("market order must never rest, got %+v", bids)
	}
}

// S4: price-time priority within a single level.
func TestScenarioPriceTimePriority(t *testing.T) {
	e, b, _ := newTestEngine()

	e.Process(&core.Order{OrderID: 1, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 10})
	e.Process(&core.Order{OrderID: 2, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 5})

	trades := e.Process(&core.Order{OrderID: 3, Side: core.Sell, Type: core.Market, Quantity: 12})
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %+v", trades)
	}
	if trades[0].MakerID != 1 || trades[0].Quantity != 10 {
		t.Fatalf("order 1 (earlier arrival) must be filled first and in full: %+v", trades[0])
	}
	if trades[1].MakerID != 2 || trades[1].Quantity != 2 {
		t.Fatalf("order 2 must absorb the remaining 2 lots: %+v", trades[1])
	}

	bids := b.SnapshotBidsL2(0)
	if len(bids) != 1 || bids[0].TotalQty != 3 || bids[0].NumOrders != 1 {
		t.Fatalf("expected order 2 resting with 3 remaining, got %+v", bids)
	}
}

// S5: cancel removes a resting order and its index entry.
func TestScenarioCancelThenNotFound(t *testing.T) {
	e, b, _ := newTestEngine()
	e.Process(&core.Order{OrderID: 1, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 10})
	e.Process(&core.Order{OrderID: 2, Side: core.Sell, Type: core.Limit, Price: 101, Quantity: 5})

	if !b.CancelOrder(1) {
		t.Fatalf("cancel of resting order should succeed")
	}
	if bids := b.SnapshotBidsL2(0); len(bids) != 0 {
		t.Fatalf("bids should be empty after cancel, got %+v", bids)
	}
	if asks := b.SnapshotAsksL2(0); len(asks) != 1 || asks[0].Price != 101 {
		t.Fatalf("asks should be untouched, got %+v", asks)
	}
	if b.CancelOrder(1) {
		t.Fatalf("second cancel of the same id must return false")
	}
}

// P3: no crossing at rest after any sequence of processing.
func TestNoCrossingAtRest(t *testing.T) {
	e, b, _ := newTestEngine()
	e.Process(&core.Order{OrderID: 1, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 10})
	e.Process(&core.Order{OrderID: 2, Side: core.Sell, Type: core.Limit, Price: 105, Quantity: 10})
	e.Process(&core.Order{OrderID: 3, Side: core.Buy, Type: core.Limit, Price: 106, Quantity: 3})

	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	if hasBid && hasAsk && bid >= ask {
		t.Fatalf("book crossed at rest: bid=%v ask=%v", bid, ask)
	}
}

// P5: a market order is never present in the book after processing.
func TestMarketOrderNeverRests(t *testing.T) {
	e, b, _ := newTestEngine()
	e.Process(&core.Order{OrderID: 1, Side: core.Sell, Type: core.Limit, Price: 100, Quantity: 2})
	e.Process(&core.Order{OrderID: 2, Side: core.Buy, Type: core.Market, Quantity: 100})

	if b.CancelOrder(2) {
		t.Fatalf("market order id must not be resolvable via cancel (it never rested)")
	}
}
