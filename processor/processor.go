// Package processor owns the dedicated goroutine that drains an
// instrument's inbound order queue and drives its matching engine.
package processor

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/queue"
)

// Matcher is the minimal surface the processor drives per popped order.
type Matcher interface {
	Process(order *core.Order) []core.Trade
}

// Processor runs Idle -> Running -> Stopped. Start is idempotent; Stop sets
// a running flag sampled by the loop and joins the goroutine.
type Processor struct {
	inbound *queue.Ring[core.Order]
	engine  Matcher

	running atomic.Bool
	wg      sync.WaitGroup
}

// New constructs a processor bound to one instrument's inbound queue and
// matching engine.
func New(inbound *queue.Ring[core.Order], engine Matcher) *Processor {
	return &Processor{inbound: inbound, engine: engine}
}

// Start launches the processing loop if it is not already running.
func (p *Processor) Start() {
	if p.running.Swap(true) {
		return // already running
	}
	p.wg.Add(1)
	go p.loop()
}

// Stop signals the loop to exit and blocks until it has. Orders already
// dequeued finish processing; orders still in the inbound queue at stop
// time are discarded.
func (p *Processor) Stop() {
	if !p.running.Swap(false) {
		return // already stopped
	}
	p.wg.Wait()
	// The loop has exited, so this goroutine is now the only consumer.
	for {
		if _, ok := p.inbound.TryPop(); !ok {
			return
		}
	}
}

// IsRunning reports whether the loop is currently active.
func (p *Processor) IsRunning() bool {
	return p.running.Load()
}

func (p *Processor) loop() {
	defer p.wg.Done()
	for p.running.Load() {
		if order, ok := p.inbound.TryPop(); ok {
			p.engine.Process(&order)
			continue
		}
		runtime.Gosched()
	}
}
