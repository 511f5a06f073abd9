// Package gateway implements the line-oriented TCP protocol from spec.md
// §6 over the oms.Manager facade, plus a WebSocket market-data fan-out so
// dashboard-style consumers don't have to poll SNAPSHOT.
package gateway

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/oms"
)

// bookUpdate is what the market-data hub broadcasts on /ws/book.
type bookUpdate struct {
	SymbolID core.SymbolID
	Bids     []levelWire
	Asks     []levelWire
}

type levelWire struct {
	Price     int64
	TotalQty  int64
	NumOrders int
}

// tradeUpdate is what the market-data hub broadcasts on /ws/trades.
type tradeUpdate struct {
	SymbolID core.SymbolID
	MakerID  uint64
	TakerID  uint64
	Price    int64
	Quantity int64
}

// tradeSubscriber is one /ws/trades connection's buffered inbox.
type tradeSubscriber struct {
	ch chan tradeUpdate
}

// tradeFeed fans out tradeUpdates to every subscribed /ws/trades connection.
// A subscriber that can't keep up silently drops the update rather than
// stalling the matching-event pump.
type tradeFeed struct {
	mu   sync.RWMutex
	subs map[*tradeSubscriber]struct{}
}

func newTradeFeed() *tradeFeed {
	return &tradeFeed{subs: make(map[*tradeSubscriber]struct{})}
}

func (f *tradeFeed) subscribe(buffer int) *tradeSubscriber {
	sub := &tradeSubscriber{ch: make(chan tradeUpdate, buffer)}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *tradeFeed) unsubscribe(sub *tradeSubscriber) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
	close(sub.ch)
}

func (f *tradeFeed) publish(update tradeUpdate) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		select {
		case sub.ch <- update:
		default:
		}
	}
}

// bookSubscriber is one /ws/book connection's buffered inbox.
type bookSubscriber struct {
	ch chan bookUpdate
}

// bookFeed fans out bookUpdates the same way tradeFeed does for trades; kept
// as a separate concrete type rather than a shared generic so each feed's
// publish call sites stay in terms of the wire type they actually carry.
type bookFeed struct {
	mu   sync.RWMutex
	subs map[*bookSubscriber]struct{}
}

func newBookFeed() *bookFeed {
	return &bookFeed{subs: make(map[*bookSubscriber]struct{})}
}

func (f *bookFeed) subscribe(buffer int) *bookSubscriber {
	sub := &bookSubscriber{ch: make(chan bookUpdate, buffer)}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub
}

func (f *bookFeed) unsubscribe(sub *bookSubscriber) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
	close(sub.ch)
}

func (f *bookFeed) publish(update bookUpdate) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		select {
		case sub.ch <- update:
		default:
		}
	}
}

// Server owns the TCP listener, the WebSocket market-data feeds, and the
// instrument manager they both front. It also issues order ids: per
// spec.md §3, an order id is unique per process, not per instrument, so the
// counter lives here in the ingress layer rather than on Manager — mirroring
// the original source's gateway-owned `std::atomic<core::OrderId>`.
type Server struct {
	manager       *oms.Manager
	snapshotDepth int
	nextOrderID   atomic.Uint64

	upgrader websocket.Upgrader
	trades   *tradeFeed
	books    *bookFeed
}

// NewServer wires a gateway server around an existing manager. The caller
// is responsible for calling manager.Start() separately; NewServer only
// registers the event callback that feeds the WebSocket market-data feeds.
func NewServer(manager *oms.Manager, snapshotDepth int, readBuf, writeBuf int) *Server {
	s := &Server{
		manager:       manager,
		snapshotDepth: snapshotDepth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		trades: newTradeFeed(),
		books:  newBookFeed(),
	}
	manager.SetEventCallback(s.onEvent)
	return s
}

// onEvent is invoked by manager.ProcessEvents for every drained event. It
// never runs on the matching goroutine.
func (s *Server) onEvent(symbolID core.SymbolID, evt core.Event) {
	if evt.Type != core.TradeEvent || evt.Trade == nil {
		return
	}
	s.trades.publish(tradeUpdate{
		SymbolID: symbolID,
		MakerID:  uint64(evt.Trade.MakerID),
		TakerID:  uint64(evt.Trade.TakerID),
		Price:    int64(evt.Trade.Price),
		Quantity: int64(evt.Trade.Quantity),
	})
	s.publishBookUpdate(symbolID)
}

func (s *Server) publishBookUpdate(symbolID core.SymbolID) {
	bids := s.manager.SnapshotBids(symbolID, s.snapshotDepth)
	asks := s.manager.SnapshotAsks(symbolID, s.snapshotDepth)
	update := bookUpdate{SymbolID: symbolID}
	for _, lvl := range bids {
		update.Bids = append(update.Bids, levelWire{Price: int64(lvl.Price), TotalQty: int64(lvl.TotalQty), NumOrders: lvl.NumOrders})
	}
	for _, lvl := range asks {
		update.Asks = append(update.Asks, levelWire{Price: int64(lvl.Price), TotalQty: int64(lvl.TotalQty), NumOrders: lvl.NumOrders})
	}
	s.books.publish(update)
}

// PumpEvents repeatedly drains the manager's outbound queues into the
// registered callback until stop is closed. It is meant to run on its own
// goroutine, acting as the "external consumer" spec.md §4.5 describes.
func (s *Server) PumpEvents(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
			s.manager.ProcessEvents()
		}
	}
}

// ListenTCP blocks accepting connections on addr, handling each on its own
// goroutine, until the listener is closed.
func (s *Server) ListenTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Printf("orderbook gateway listening on %s", addr)
	return s.Serve(ln)
}

// Serve accepts connections on an already-bound listener, handling each on
// its own goroutine, until the listener is closed. Split out from ListenTCP
// so tests can bind an ephemeral port themselves.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)
	defer writer.Flush()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.dispatch(writer, line)
		writer.Flush()
	}
}

func (s *Server) dispatch(w *bufio.Writer, line string) {
	cmd, rest := splitCommand(line)
	switch cmd {
	case "ADD_INSTRUMENT":
		s.handleAddInstrument(w, rest)
	case "REMOVE_INSTRUMENT":
		s.handleRemoveInstrument(w, rest)
	case "LIST_INSTRUMENTS":
		s.handleListInstruments(w)
	case "ADD":
		s.handleAddOrder(w, rest)
	case "CANCEL":
		s.handleCancel(w, rest)
	case "SNAPSHOT":
		s.handleSnapshot(w, rest)
	default:
		fmt.Fprintf(w, "ERROR unknown command %q\n", cmd)
	}
}

func splitCommand(line string) (cmd, rest string) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

func (s *Server) handleAddInstrument(w *bufio.Writer, args string) {
	req, err := parseAddInstrument(args)
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	symbolID, err := s.manager.AddInstrument(req.ticker, req.description, req.industry, req.initialPrice)
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	fmt.Fprintf(w, "OK %d\n", symbolID)
}

func (s *Server) handleRemoveInstrument(w *bufio.Writer, args string) {
	symbolID, err := parseSymbolID(strings.TrimSpace(args))
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	if !s.manager.RemoveInstrument(symbolID) {
		fmt.Fprintf(w, "ERROR Instrument not found\n")
		return
	}
	fmt.Fprintf(w, "OK\n")
}

func (s *Server) handleListInstruments(w *bufio.Writer) {
	instruments := s.manager.ListInstruments()
	fmt.Fprintf(w, "INSTRUMENTS %d\n", len(instruments))
	for _, inst := range instruments {
		fmt.Fprintf(w, "%d|%s|%s|%s|%s\n", inst.SymbolID, inst.Ticker, inst.Description, inst.Industry, inst.InitialPrice.StringFixed(2))
	}
	fmt.Fprintf(w, "END\n")
}

func (s *Server) handleAddOrder(w *bufio.Writer, args string) {
	req, err := parseAddOrder(args)
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	if !s.manager.HasInstrument(req.symbolID) {
		fmt.Fprintf(w, "ERROR Instrument not found\n")
		return
	}
	orderID := core.OrderID(s.nextOrderID.Add(1))
	req.order.OrderID = orderID
	if !s.manager.SubmitOrder(req.order) {
		fmt.Fprintf(w, "ERROR queue full\n")
		return
	}
	fmt.Fprintf(w, "OK %d\n", orderID)
}

func (s *Server) handleCancel(w *bufio.Writer, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		fmt.Fprintf(w, "ERROR expected symbol_id order_id\n")
		return
	}
	symbolID, err := parseSymbolID(fields[0])
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	orderID, err := parseOrderID(fields[1])
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	if !s.manager.CancelOrder(symbolID, orderID) {
		fmt.Fprintf(w, "NOTFOUND\n")
		return
	}
	fmt.Fprintf(w, "OK\n")
}

func (s *Server) handleSnapshot(w *bufio.Writer, args string) {
	symbolID, err := parseSymbolID(strings.TrimSpace(args))
	if err != nil {
		fmt.Fprintf(w, "ERROR %s\n", err)
		return
	}
	if !s.manager.HasInstrument(symbolID) {
		fmt.Fprintf(w, "ERROR Instrument not found\n")
		return
	}

	bids := s.manager.SnapshotBids(symbolID, s.snapshotDepth)
	asks := s.manager.SnapshotAsks(symbolID, s.snapshotDepth)

	fmt.Fprintf(w, "SNAPSHOT %d\n", symbolID)
	fmt.Fprintf(w, "BIDS %d\n", len(bids))
	for _, lvl := range bids {
		fmt.Fprintf(w, "%d %d %d\n", lvl.Price, lvl.TotalQty, lvl.NumOrders)
	}
	fmt.Fprintf(w, "ASKS %d\n", len(asks))
	for _, lvl := range asks {
		fmt.Fprintf(w, "%d %d %d\n", lvl.Price, lvl.TotalQty, lvl.NumOrders)
	}
	fmt.Fprintf(w, "END\n")
}

// Routes returns the HTTP handler serving the WebSocket market-data
// endpoints; it is wired separately from ListenTCP since the two use
// different transports for the same underlying manager.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/trades", s.handleTradeStream)
	mux.HandleFunc("/ws/book", s.handleBookStream)
	return mux
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.trades.subscribe(32)
	defer s.trades.unsubscribe(sub)

	for update := range sub.ch {
		if err := conn.WriteJSON(update); err != nil {
			return
		}
	}
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.books.subscribe(32)
	defer s.books.unsubscribe(sub)

	for update := range sub.ch {
		if err := conn.WriteJSON(update); err != nil {
			return
		}
	}
}
