// Package oms implements the instrument manager: it owns one book, engine,
// queue pair, and processor per instrument, and routes orders and queries
// to the right one by symbol id.
package oms

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kgsahil/OrderBook/book"
	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/engine"
	"github.com/kgsahil/OrderBook/events"
	"github.com/kgsahil/OrderBook/processor"
	"github.com/kgsahil/OrderBook/queue"
)

// DefaultQueueCapacity is the default inbound/outbound queue depth for a
// newly added instrument (a power of two, per the queue's own contract).
const DefaultQueueCapacity = 1024

// Stats holds per-instrument bookkeeping counters. These are plain fields
// under the bundle's mutex, not a metrics-transport integration.
type Stats struct {
	Accepted uint64
	Trades   uint64
	Rejected uint64
	Canceled uint64
}

// EventCallback receives one event drained from an instrument's outbound
// queue. It runs synchronously on the caller's goroutine inside
// ProcessEvents, never on the matching goroutine.
type EventCallback func(symbolID core.SymbolID, evt core.Event)

// bundle owns every resource for one instrument: the book, engine,
// publisher, both queues, the processor goroutine, and the mutex that
// serializes cancels/snapshots against the processor's matching step.
type bundle struct {
	mu sync.Mutex

	instrument core.Instrument
	b          *book.OrderBook
	eng        *engine.MatchingEngine
	pub        *events.Publisher
	inbound    *queue.Ring[core.Order]
	outbound   *queue.Ring[core.Event]
	proc       *processor.Processor

	stats Stats
}

// lockingMatcher adapts a MatchingEngine into processor.Matcher while
// holding the bundle's exclusive section for the duration of one order's
// processing, so a concurrent cancel or snapshot never observes a torn
// book.
type lockingMatcher struct {
	mu  *sync.Mutex
	eng *engine.MatchingEngine
}

func (l *lockingMatcher) Process(order *core.Order) []core.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eng.Process(order)
}

// Manager is the routing facade over every live instrument.
type Manager struct {
	mu            sync.Mutex
	instruments   map[core.SymbolID]*bundle
	nextSymbolID  core.SymbolID
	callback      EventCallback
	queueCapacity int
}

// New constructs an empty instrument manager. queueCapacity sets the
// inbound/outbound ring buffer depth every instrument added afterward gets;
// pass DefaultQueueCapacity for the teacher's own default.
func New(queueCapacity int) *Manager {
	return &Manager{
		instruments:   make(map[core.SymbolID]*bundle),
		nextSymbolID:  1,
		queueCapacity: queueCapacity,
	}
}

// AddInstrument validates ticker/initialPrice, allocates a fresh symbol id,
// and starts a processor for the new instrument's bundle.
func (m *Manager) AddInstrument(ticker, description, industry string, initialPrice decimal.Decimal) (core.SymbolID, error) {
	if ticker == "" {
		return 0, errors.New("ticker must not be empty")
	}
	if initialPrice.Sign() <= 0 {
		return 0, errors.New("initial price must be positive")
	}

	m.mu.Lock()
	symbolID := m.nextSymbolID
	m.nextSymbolID++

	q := queue.NewRing[core.Order](m.queueCapacity)
	outQ := queue.NewRing[core.Event](m.queueCapacity)
	ob := book.New()
	pub := events.NewPublisher(outQ)
	eng := engine.New(ob, pub)

	bnd := &bundle{
		instrument: core.Instrument{
			SymbolID:     symbolID,
			Ticker:       ticker,
			Description:  description,
			Industry:     industry,
			InitialPrice: initialPrice,
			CreatedAt:    time.Now(),
		},
		b:        ob,
		eng:      eng,
		pub:      pub,
		inbound:  q,
		outbound: outQ,
	}
	// The processor's matching step and the manager's cancels/snapshots
	// share bnd.mu, per the per-instrument exclusive section spec.md §5
	// requires explicitly (the matching engine itself has no locking of
	// its own — see lockingMatcher).
	bnd.proc = processor.New(q, &lockingMatcher{mu: &bnd.mu, eng: eng})

	m.instruments[symbolID] = bnd
	m.mu.Unlock()

	bnd.proc.Start()
	return symbolID, nil
}

// RemoveInstrument stops the processor and discards the bundle, including
// all resting orders and pending events. It returns false if the symbol is
// unknown.
func (m *Manager) RemoveInstrument(symbolID core.SymbolID) bool {
	m.mu.Lock()
	bnd, ok := m.instruments[symbolID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.instruments, symbolID)
	m.mu.Unlock()

	bnd.proc.Stop()
	return true
}

// HasInstrument reports whether symbolID is currently registered.
func (m *Manager) HasInstrument(symbolID core.SymbolID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.instruments[symbolID]
	return ok
}

// GetInstrument returns the metadata for symbolID, if known.
func (m *Manager) GetInstrument(symbolID core.SymbolID) (core.Instrument, bool) {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return core.Instrument{}, false
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.instrument, true
}

// ListInstruments returns the metadata for every currently registered
// instrument, in no particular order.
func (m *Manager) ListInstruments() []core.Instrument {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Instrument, 0, len(m.instruments))
	for _, bnd := range m.instruments {
		out = append(out, bnd.instrument)
	}
	return out
}

func (m *Manager) lookup(symbolID core.SymbolID) *bundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instruments[symbolID]
}

// SubmitOrder routes order by its SymbolID and pushes it onto that
// instrument's inbound queue. It returns false if the instrument is
// unknown or the queue is full (backpressure to the caller).
func (m *Manager) SubmitOrder(order core.Order) bool {
	bnd := m.lookup(order.SymbolID)
	if bnd == nil {
		return false
	}
	if !bnd.inbound.TryPush(order) {
		bnd.mu.Lock()
		bnd.stats.Rejected++
		bnd.mu.Unlock()
		return false
	}
	bnd.mu.Lock()
	bnd.stats.Accepted++
	bnd.mu.Unlock()
	return true
}

// CancelOrder cancels synchronously, bypassing the queue, under the
// instrument's exclusive section — the same section the processor holds for
// the duration of one order's matching step — so a cancel can never race a
// concurrent book mutation.
func (m *Manager) CancelOrder(symbolID core.SymbolID, orderID core.OrderID) bool {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return false
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	ok := bnd.b.CancelOrder(orderID)
	if ok {
		bnd.stats.Canceled++
	}
	return ok
}

// BestBid delegates to the instrument's book.
func (m *Manager) BestBid(symbolID core.SymbolID) (core.Price, bool) {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return 0, false
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.b.BestBid()
}

// BestAsk delegates to the instrument's book.
func (m *Manager) BestAsk(symbolID core.SymbolID) (core.Price, bool) {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return 0, false
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.b.BestAsk()
}

// SnapshotBids delegates to the instrument's book; it returns nil if the
// instrument is unknown.
func (m *Manager) SnapshotBids(symbolID core.SymbolID, depth int) []book.LevelSummary {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return nil
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.b.SnapshotBidsL2(depth)
}

// SnapshotAsks delegates to the instrument's book; it returns nil if the
// instrument is unknown.
func (m *Manager) SnapshotAsks(symbolID core.SymbolID, depth int) []book.LevelSummary {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return nil
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.b.SnapshotAsksL2(depth)
}

// Stats returns a copy of symbolID's bookkeeping counters.
func (m *Manager) Stats(symbolID core.SymbolID) (Stats, bool) {
	bnd := m.lookup(symbolID)
	if bnd == nil {
		return Stats{}, false
	}
	bnd.mu.Lock()
	defer bnd.mu.Unlock()
	return bnd.stats, true
}

// SetEventCallback applies callback to every current instrument and to any
// instrument added afterward.
func (m *Manager) SetEventCallback(callback EventCallback) {
	m.mu.Lock()
	m.callback = callback
	m.mu.Unlock()
}

// ProcessEvents drains every instrument's outbound queue into the current
// callback. It is meant to be called repeatedly from the ingress/consumer
// goroutine, not from the matching goroutine.
func (m *Manager) ProcessEvents() {
	m.mu.Lock()
	callback := m.callback
	type instrumentBundle struct {
		symbolID core.SymbolID
		bnd      *bundle
	}
	snapshot := make([]instrumentBundle, 0, len(m.instruments))
	for id, bnd := range m.instruments {
		snapshot = append(snapshot, instrumentBundle{symbolID: id, bnd: bnd})
	}
	m.mu.Unlock()

	if callback == nil {
		return
	}
	for _, entry := range snapshot {
		symbolID, bnd := entry.symbolID, entry.bnd
		for {
			evt, ok := bnd.outbound.TryPop()
			if !ok {
				break
			}
			if evt.Type == core.TradeEvent {
				bnd.mu.Lock()
				bnd.stats.Trades++
				bnd.mu.Unlock()
			}
			callback(symbolID, evt)
		}
	}
}

// Start launches the processor for every currently registered instrument.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bnd := range m.instruments {
		bnd.proc.Start()
	}
}

// Stop halts the processor for every currently registered instrument.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bnd := range m.instruments {
		bnd.proc.Stop()
	}
}

// IsRunning reports whether any instrument's processor is currently active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bnd := range m.instruments {
		if bnd.proc.IsRunning() {
			return true
		}
	}
	return false
}
