// Package queue holds save tickets until the save worker picks them up.
//
// Every save sends the full current list, so tickets are not work items:
// they are requests for "a save that starts after now". Next therefore
// hands out everything waiting as one batch, and all tickets in a batch are
// answered by the same round. Triggers arriving while a round is in flight
// coalesce into the next batch.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/matchreel/pkg/metrics"
)

const defaultCapacity = 1024

// Ticket asks for one save round.
type Ticket struct {
	// Mode is metrics.ModeImmediate or metrics.ModeDebounced.
	Mode string
	// Reason names the operation that triggered the save, for logs.
	Reason string
	// Done, when non-nil, receives the round's result. It must be buffered.
	Done chan<- error
	// Enqueued is stamped by Enqueue.
	Enqueued time.Time
}

// Queue provides non-blocking enqueue and batch dequeue semantics.
type Queue interface {
	// Enqueue adds a ticket. Returns false if the queue is closed or full.
	Enqueue(ctx context.Context, t Ticket) bool
	// Next blocks until at least one ticket waits, then returns all of them.
	// Returns ErrStopped once the queue is closed and drained.
	Next(ctx context.Context) ([]Ticket, error)
	// Len returns the number of waiting tickets.
	Len(ctx context.Context) int
	// Close stops accepting tickets. Waiting tickets can still be drained.
	Close() error
	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a slice and a one-slot wake channel.
type InMemoryQueue struct {
	mu       sync.Mutex
	pending  []Ticket
	capacity int
	wake     chan struct{}
	done     chan struct{}
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	metrics.UpdateSaveQueueDepth(0)
	return q
}

// Enqueue adds a ticket to the next batch.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Ticket) bool {
	if ctx.Err() != nil {
		return false
	}

	q.mu.Lock()
	if q.closed || len(q.pending) >= q.capacity {
		q.mu.Unlock()
		metrics.RecordErrorByComponent("save_queue", "rejected")
		return false
	}
	if len(q.pending) > 0 {
		metrics.RecordSaveCoalesced()
	}
	t.Enqueued = time.Now()
	q.pending = append(q.pending, t)
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.UpdateSaveQueueDepth(depth)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Next returns every waiting ticket as one batch.
func (q *InMemoryQueue) Next(ctx context.Context) ([]Ticket, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			batch := q.pending
			q.pending = nil
			q.mu.Unlock()
			metrics.UpdateSaveQueueDepth(0)
			return batch, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrStopped
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of waiting tickets.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting tickets.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
