// Package events implements the thin adapter that pushes engine-produced
// events onto the outbound SPSC queue.
package events

import (
	"sync/atomic"

	"github.com/kgsahil/OrderBook/core"
	"github.com/kgsahil/OrderBook/queue"
)

// Publisher is the sole producer identity for an instrument's outbound
// event queue. Pushing is never blocking: on a full queue the event is
// dropped and counted, but the engine is not slowed down.
type Publisher struct {
	outbound *queue.Ring[core.Event]
	dropped  atomic.Uint64
}

// NewPublisher wraps an outbound queue for a single instrument.
func NewPublisher(outbound *queue.Ring[core.Event]) *Publisher {
	return &Publisher{outbound: outbound}
}

// Publish pushes an event onto the outbound queue. On failure (queue full)
// the event is dropped from the engine's perspective; Dropped() exposes the
// running count for an external metrics collector.
func (p *Publisher) Publish(evt core.Event) {
	if !p.outbound.TryPush(evt) {
		p.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped so far due to a full
// outbound queue.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}
