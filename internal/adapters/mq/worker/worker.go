// Package worker runs save rounds pulled off the save queue.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/matchreel/internal/adapters/mq/queue"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

// Flusher performs one save round. mode is metrics.ModeImmediate when any
// ticket in the round was immediate, metrics.ModeDebounced otherwise.
type Flusher interface {
	Flush(ctx context.Context, mode string) error
}

// Queue defines how the worker receives save tickets.
type Queue interface {
	Next(ctx context.Context) ([]queue.Ticket, error)
}

// Worker processes save rounds one at a time.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue stops.
	Run(ctx context.Context)

	// Shutdown waits for the in-flight round and any drained tickets.
	Shutdown(ctx context.Context) error
}

// SaveWorker is the single consumer of a save queue. Only one round is ever
// in flight, so saves reach the remote API in order.
type SaveWorker struct {
	queue   Queue
	flusher Flusher
	name    string

	done chan struct{}

	logger logger.Logger
}

var _ Worker = (*SaveWorker)(nil)

// NewSaveWorker creates a new save worker with configuration options.
func NewSaveWorker(q Queue, f Flusher, opts ...Option) *SaveWorker {
	w := &SaveWorker{
		queue:   q,
		flusher: f,
		name:    "save-worker",
		done:    make(chan struct{}),
		logger:  logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "save-worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run pulls batches until the queue stops or ctx is cancelled. Tickets still
// waiting when ctx is cancelled are answered with ctx's error.
func (w *SaveWorker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		batch, err := w.queue.Next(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrStopped) && !errors.Is(err, context.Canceled) {
				w.logger.Error(ctx, "save queue failed", logger.Error(err))
			}
			return
		}
		w.process(ctx, batch)
	}
}

// Shutdown waits for Run to return. Close the queue first so Run can drain.
func (w *SaveWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *SaveWorker) Done() <-chan struct{} {
	return w.done
}

func (w *SaveWorker) process(ctx context.Context, batch []queue.Ticket) {
	mode := metrics.ModeDebounced
	for _, t := range batch {
		if t.Mode == metrics.ModeImmediate {
			mode = metrics.ModeImmediate
			break
		}
	}

	var err error
	if ctx.Err() != nil {
		err = ctx.Err()
	} else {
		err = w.flusher.Flush(ctx, mode)
	}
	if err != nil {
		w.logger.Debug(ctx, "save round failed",
			logger.String("mode", mode),
			logger.Int("tickets", len(batch)),
			logger.Error(err),
		)
	}

	for _, t := range batch {
		if t.Done == nil {
			continue
		}
		select {
		case t.Done <- err:
		default:
			w.logger.Warn(ctx, "dropped save result, waiter channel full",
				logger.String("reason", t.Reason))
		}
	}
}
