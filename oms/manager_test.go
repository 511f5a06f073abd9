package oms

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kgsahil/OrderBook/core"
)

func waitForEvents(t *testing.T, m *Manager, want int, timeout time.Duration) []core.Event {
	t.Helper()
	var got []core.Event
	deadline := time.Now().Add(timeout)
	m.SetEventCallback(func(symbolID core.SymbolID, evt core.Event) {
		got = append(got, evt)
	})
	for len(got) < want && time.Now().Before(deadline) {
		m.ProcessEvents()
		time.Sleep(time.Millisecond)
	}
	return got
}

func TestAddInstrumentValidatesInputs(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()

	_, err := m.AddInstrument("", "d", "i", decimal.NewFromInt(100))
	require.Error(t, err, "empty ticker must be rejected")

	_, err = m.AddInstrument("AAPL", "d", "i", decimal.NewFromInt(0))
	require.Error(t, err, "non-positive initial price must be rejected")

	id, err := m.AddInstrument("AAPL", "Apple", "Tech", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Equal(t, core.SymbolID(1), id, "first symbol id must be 1")

	id2, err := m.AddInstrument("MSFT", "Microsoft", "Tech", decimal.NewFromInt(200))
	require.NoError(t, err)
	require.Equal(t, core.SymbolID(2), id2, "symbol ids are monotonic")
}

func TestSubmitOrderUnknownInstrumentFails(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()
	ok := m.SubmitOrder(core.Order{SymbolID: 999, Side: core.Buy, Type: core.Limit, Price: 1, Quantity: 1})
	require.False(t, ok, "submitting to an unknown symbol must fail")
}

func TestEndToEndPartialFillAndSnapshot(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()

	symbolID, err := m.AddInstrument("AAPL", "Apple", "Tech", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.True(t, m.SubmitOrder(core.Order{OrderID: 1, SymbolID: symbolID, Side: core.Sell, Type: core.Limit, Price: 101, Quantity: 5}))
	require.True(t, m.SubmitOrder(core.Order{OrderID: 2, SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 102, Quantity: 8}))

	evts := waitForEvents(t, m, 3, time.Second) // Ack(1), Ack(2), Trade
	require.GreaterOrEqual(t, len(evts), 3)

	var sawTrade bool
	for _, e := range evts {
		if e.Type == core.TradeEvent {
			sawTrade = true
			require.Equal(t, core.OrderID(1), e.Trade.MakerID)
			require.Equal(t, core.OrderID(2), e.Trade.TakerID)
			require.Equal(t, core.Quantity(5), e.Trade.Quantity)
		}
	}
	require.True(t, sawTrade, "expected a trade event")

	require.Eventually(t, func() bool {
		bids := m.SnapshotBids(symbolID, 0)
		return len(bids) == 1 && bids[0].TotalQty == 3
	}, time.Second, 5*time.Millisecond)
}

func TestCancelOrderSynchronous(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()
	symbolID, err := m.AddInstrument("AAPL", "Apple", "Tech", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.True(t, m.SubmitOrder(core.Order{OrderID: 1, SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 100, Quantity: 10}))
	require.Eventually(t, func() bool {
		bid, ok := m.BestBid(symbolID)
		return ok && bid == 100
	}, time.Second, 5*time.Millisecond)

	require.True(t, m.CancelOrder(symbolID, 1))
	require.False(t, m.CancelOrder(symbolID, 1), "second cancel must be NOTFOUND")
	require.False(t, m.CancelOrder(symbolID, 2), "unknown order id must be NOTFOUND")
}

func TestRemoveInstrumentStopsAndForgets(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()
	symbolID, err := m.AddInstrument("AAPL", "Apple", "Tech", decimal.NewFromInt(100))
	require.NoError(t, err)

	require.True(t, m.RemoveInstrument(symbolID))
	require.False(t, m.RemoveInstrument(symbolID), "removing twice must fail")
	require.False(t, m.SubmitOrder(core.Order{SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 1, Quantity: 1}))
}

func TestQueueBackpressure(t *testing.T) {
	m := New(DefaultQueueCapacity)
	defer m.Stop()
	symbolID, err := m.AddInstrument("SIM", "Sim", "Test", decimal.NewFromInt(10))
	require.NoError(t, err)

	// Stop the processor immediately so orders pile up in the inbound
	// queue instead of draining, to exercise capacity exhaustion (S6).
	m.mu.Lock()
	bnd := m.instruments[symbolID]
	m.mu.Unlock()
	bnd.proc.Stop()

	usable := bnd.inbound.Capacity()
	for i := 0; i < usable; i++ {
		require.True(t, m.SubmitOrder(core.Order{OrderID: core.OrderID(i + 1), SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 1, Quantity: 1}))
	}
	require.False(t, m.SubmitOrder(core.Order{OrderID: 999, SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 1, Quantity: 1}), "queue should be full")

	bnd.proc.Start()
	require.Eventually(t, func() bool {
		return bnd.inbound.IsEmpty()
	}, time.Second, 5*time.Millisecond)

	require.True(t, m.SubmitOrder(core.Order{OrderID: 1000, SymbolID: symbolID, Side: core.Buy, Type: core.Limit, Price: 1, Quantity: 1}), "queue should accept again once drained")
}
