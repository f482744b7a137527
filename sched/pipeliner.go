package sched

import (
	"sync"

	"github.com/akitasoftware/flowcore/packet"
)

/// Pipeliner is the framework's only cross-thread ordering primitive: a
// per-producer-thread ring of batches drained by a single consumer task.
// It preserves FIFO order per producer thread; no ordering is promised
// between batches from different producers.
type Pipeliner struct {
	queues   []*producerQueue
	notifier *Notifier
	cursor   int
}

type producerQueue struct {
	mu      sync.Mutex
	batches []*packet.PacketBatch
}

// NewPipeliner constructs a Pipeliner with one ring per producer thread.
func NewPipeliner(numProducers int) *Pipeliner {
	p := &Pipeliner{
		queues:   make([]*producerQueue, numProducers),
		notifier: NewNotifier(),
	}
	for i := range p.queues {
		p.queues[i] = &producerQueue{}
	}
	return p
}

// Push enqueues batch from producerThread. Safe to call concurrently from
// different producer threads; each producer's own calls must be
// serialized by the caller (they run on that producer's single scheduler
// loop, so this is automatic in normal use).
func (p *Pipeliner) Push(producerThread int, batch *packet.PacketBatch) {
	q := p.queues[producerThread]
	q.mu.Lock()
	q.batches = append(q.batches, batch)
	q.mu.Unlock()
	p.notifier.Signal()
}

// PullNext returns the oldest batch from the next non-empty producer
// queue in round-robin order, or nil if every queue is empty. Must be
// called from a single consumer; concurrent PullNext calls would race on
// the round-robin cursor.
func (p *Pipeliner) PullNext() *packet.PacketBatch {
	n := len(p.queues)
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		q := p.queues[idx]
		q.mu.Lock()
		if len(q.batches) > 0 {
			b := q.batches[0]
			q.batches = q.batches[1:]
			q.mu.Unlock()
			p.cursor = (idx + 1) % n
			return b
		}
		q.mu.Unlock()
	}
	p.notifier.Clear()
	return nil
}

// Notifier exposes the wake signal so a consumer Task can park instead of
// busy-polling PullNext when every queue is empty; downstream empty-queue
// signals propagate back to sources so they throttle.
func (p *Pipeliner) Notifier() *Notifier {
	return p.notifier
}

// ConsumerTask returns a TaskFunc that drains one batch per quantum via
// PullNext and hands it to handle, suitable for AddTask on the
// Pipeliner's single consumer loop.
func (p *Pipeliner) ConsumerTask(handle func(*packet.PacketBatch)) TaskFunc {
	return func() bool {
		b := p.PullNext()
		if b == nil {
			return false
		}
		handle(b)
		return true
	}
}
