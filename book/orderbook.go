// Package book implements the per-instrument limit order book: two
// price-indexed ladders under price-time priority, with an O(1) cancel
// index keyed by external order id.
package book

import (
	"container/list"

	"github.com/google/btree"

	"github.com/kgsahil/OrderBook/core"
)

// Level exposes the minimal read surface of a price level that the
// matching engine needs to drain it, without exposing the book's internal
// btree/list representation.
type Level interface {
	Front() *core.Order
	Price() core.Price
	Empty() bool
}

// LevelSummary is the L2 (aggregated) view of one price level.
type LevelSummary struct {
	Price     core.Price
	TotalQty  core.Quantity
	NumOrders int
}

// priceLevel holds the FIFO queue of resting orders at one price. The FIFO
// is a doubly-linked list so that cancel-by-id removal is O(1) via a
// stable *list.Element handle that survives insertions and removals of
// other orders, per the design note that a positional handle into a
// container that reshuffles on mutation is fragile.
type priceLevel struct {
	price  core.Price
	orders *list.List // elements are *core.Order
}

func newPriceLevel(price core.Price) *priceLevel {
	return &priceLevel{price: price, orders: list.New()}
}

// bidLevelItem and askLevelItem adapt priceLevel into btree.Item with the
// ladder's own ordering: bids descending by price, asks ascending.
type bidLevelItem struct {
	price core.Price
	level *priceLevel
}

func (b *bidLevelItem) Less(than btree.Item) bool {
	return b.price > than.(*bidLevelItem).price
}

type askLevelItem struct {
	price core.Price
	level *priceLevel
}

func (a *askLevelItem) Less(than btree.Item) bool {
	return a.price < than.(*askLevelItem).price
}

// locator gives O(1) direct access to a resting order's position for
// cancel and front-removal, per invariant 1.
type locator struct {
	side  core.Side
	price core.Price
	elem  *list.Element
}

// OrderBook stores resting Limit orders for one instrument.
type OrderBook struct {
	bids *btree.BTree // of *bidLevelItem, highest price first
	asks *btree.BTree // of *askLevelItem, lowest price first

	locators map[core.OrderID]locator
}

// degree is the btree branching factor; 32 is google/btree's own default
// and is not performance-sensitive at the price-level counts this engine
// will see.
const degree = 32

// New constructs an empty order book.
func New() *OrderBook {
	return &OrderBook{
		bids:     btree.New(degree),
		asks:     btree.New(degree),
		locators: make(map[core.OrderID]locator),
	}
}

// AddOrder inserts order at the tail of the FIFO for its (side, price),
// creating the level if absent, and registers the cancel index entry.
// Preconditions: order.Type == Limit, order.Price > 0, order.Quantity > 0.
// A violation returns false with no side effect.
func (b *OrderBook) AddOrder(order *core.Order) bool {
	if order.Type != core.Limit || order.Price <= 0 || order.Quantity <= 0 {
		return false
	}

	if order.Side == core.Buy {
		level := b.getOrCreateBidLevel(order.Price)
		elem := level.orders.PushBack(order)
		b.locators[order.OrderID] = locator{side: core.Buy, price: order.Price, elem: elem}
	} else {
		level := b.getOrCreateAskLevel(order.Price)
		elem := level.orders.PushBack(order)
		b.locators[order.OrderID] = locator{side: core.Sell, price: order.Price, elem: elem}
	}
	return true
}

func (b *OrderBook) getOrCreateBidLevel(price core.Price) *priceLevel {
	key := &bidLevelItem{price: price}
	if item := b.bids.Get(key); item != nil {
		return item.(*bidLevelItem).level
	}
	level := newPriceLevel(price)
	b.bids.ReplaceOrInsert(&bidLevelItem{price: price, level: level})
	return level
}

func (b *OrderBook) getOrCreateAskLevel(price core.Price) *priceLevel {
	key := &askLevelItem{price: price}
	if item := b.asks.Get(key); item != nil {
		return item.(*askLevelItem).level
	}
	level := newPriceLevel(price)
	b.asks.ReplaceOrInsert(&askLevelItem{price: price, level: level})
	return level
}

// CancelOrder removes the resting order with the given id. It returns false
// silently if the id is not found.
func (b *OrderBook) CancelOrder(id core.OrderID) bool {
	loc, ok := b.locators[id]
	if !ok {
		return false
	}
	delete(b.locators, id)

	if loc.side == core.Buy {
		key := &bidLevelItem{price: loc.price}
		item := b.bids.Get(key)
		if item == nil {
			return false
		}
		level := item.(*bidLevelItem).level
		level.orders.Remove(loc.elem)
		if level.orders.Len() == 0 {
			b.bids.Delete(key)
		}
	} else {
		key := &askLevelItem{price: loc.price}
		item := b.asks.Get(key)
		if item == nil {
			return false
		}
		level := item.(*askLevelItem).level
		level.orders.Remove(loc.elem)
		if level.orders.Len() == 0 {
			b.asks.Delete(key)
		}
	}
	return true
}

// EraseFrontAtLevel pops the front order at (side, price) if and only if
// its id matches expectedID, removing the level if it becomes empty. The
// expected-id guard prevents accidental removal if the level was
// restructured between the caller observing the front and calling this.
func (b *OrderBook) EraseFrontAtLevel(side core.Side, price core.Price, expectedID core.OrderID) {
	if side == core.Buy {
		key := &bidLevelItem{price: price}
		item := b.bids.Get(key)
		if item == nil {
			return
		}
		level := item.(*bidLevelItem).level
		front := level.orders.Front()
		if front == nil || front.Value.(*core.Order).OrderID != expectedID {
			return
		}
		delete(b.locators, expectedID)
		level.orders.Remove(front)
		if level.orders.Len() == 0 {
			b.bids.Delete(key)
		}
	} else {
		key := &askLevelItem{price: price}
		item := b.asks.Get(key)
		if item == nil {
			return
		}
		level := item.(*askLevelItem).level
		front := level.orders.Front()
		if front == nil || front.Value.(*core.Order).OrderID != expectedID {
			return
		}
		delete(b.locators, expectedID)
		level.orders.Remove(front)
		if level.orders.Len() == 0 {
			b.asks.Delete(key)
		}
	}
}

// BestBid returns the highest resting bid price, if any.
func (b *OrderBook) BestBid() (core.Price, bool) {
	item := b.bids.Min()
	if item == nil {
		return 0, false
	}
	return item.(*bidLevelItem).price, true
}

// BestAsk returns the lowest resting ask price, if any.
func (b *OrderBook) BestAsk() (core.Price, bool) {
	item := b.asks.Min()
	if item == nil {
		return 0, false
	}
	return item.(*askLevelItem).price, true
}

// BestBidLevel exposes the resting FIFO at the best bid, for the matching
// engine to drain. It returns nil if the bid side is empty.
func (b *OrderBook) BestBidLevel() Level {
	item := b.bids.Min()
	if item == nil {
		return nil
	}
	return item.(*bidLevelItem).level
}

// BestAskLevel exposes the resting FIFO at the best ask, for the matching
// engine to drain. It returns nil if the ask side is empty.
func (b *OrderBook) BestAskLevel() Level {
	item := b.asks.Min()
	if item == nil {
		return nil
	}
	return item.(*askLevelItem).level
}

// Front returns the order at the head of the level's FIFO, or nil.
func (l *priceLevel) Front() *core.Order {
	front := l.orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*core.Order)
}

// Price returns the level's price.
func (l *priceLevel) Price() core.Price { return l.price }

// Empty reports whether the level's FIFO has drained.
func (l *priceLevel) Empty() bool { return l.orders.Len() == 0 }

// SnapshotBidsL2 returns the top depth bid levels (0 = all), bids
// descending, each summarized as {price, total_quantity, num_orders}.
func (b *OrderBook) SnapshotBidsL2(depth int) []LevelSummary {
	return snapshotL2(b.bids, depth, func(item btree.Item) *priceLevel {
		return item.(*bidLevelItem).level
	})
}

// SnapshotAsksL2 returns the top depth ask levels (0 = all), asks
// ascending, each summarized as {price, total_quantity, num_orders}.
func (b *OrderBook) SnapshotAsksL2(depth int) []LevelSummary {
	return snapshotL2(b.asks, depth, func(item btree.Item) *priceLevel {
		return item.(*askLevelItem).level
	})
}

func snapshotL2(tree *btree.BTree, depth int, levelOf func(btree.Item) *priceLevel) []LevelSummary {
	out := make([]LevelSummary, 0, tree.Len())
	tree.Ascend(func(item btree.Item) bool {
		level := levelOf(item)
		var total core.Quantity
		for e := level.orders.Front(); e != nil; e = e.Next() {
			total += e.Value.(*core.Order).Quantity
		}
		out = append(out, LevelSummary{Price: level.price, TotalQty: total, NumOrders: level.orders.Len()})
		return depth == 0 || len(out) < depth
	})
	return out
}
