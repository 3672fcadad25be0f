package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/okian/matchreel/internal/adapters/gameapi"
	"github.com/okian/matchreel/internal/adapters/mq/debounce"
	"github.com/okian/matchreel/internal/adapters/mq/queue"
	"github.com/okian/matchreel/internal/adapters/mq/worker"
	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/internal/domain/types"
	"github.com/okian/matchreel/pkg/logger"
	"github.com/okian/matchreel/pkg/metrics"
)

const defaultSaveTimeout = 30 * time.Second

// Saver replaces a game's stored event list.
type Saver interface {
	SaveEvents(ctx context.Context, gameID string, events []model.EventPayload) error
}

// SnapshotFunc returns the full list to persist, read at send time.
type SnapshotFunc func() []model.EventPayload

// Coordinator funnels every save of one game through a single queue and
// worker. Immediate saves are awaited; debounced saves fire after the quiet
// period. Each round sends a fresh snapshot, so a round started after a
// mutation always carries it.
type Coordinator struct {
	gameID      string
	saver       Saver
	snapshot    SnapshotFunc
	saveTimeout time.Duration
	delay       time.Duration

	queue    *queue.InMemoryQueue
	worker   *worker.SaveWorker
	debounce *debounce.Debouncer
	cancel   context.CancelFunc

	mu     sync.Mutex
	status types.SaveStatus
	closed bool

	logger logger.Logger
}

var _ worker.Flusher = (*Coordinator)(nil)

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithAutosaveDelay sets the debounce quiet period.
func WithAutosaveDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithSaveTimeout bounds a single save round.
func WithSaveTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.saveTimeout = d
		}
	}
}

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(l logger.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator creates a coordinator and starts its save worker.
func NewCoordinator(gameID string, saver Saver, snapshot SnapshotFunc, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		gameID:      gameID,
		saver:       saver,
		snapshot:    snapshot,
		saveTimeout: defaultSaveTimeout,
		delay:       debounce.DefaultDelay,
		logger:      logger.Get().Named("coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.queue = queue.NewInMemoryQueue()
	c.debounce = debounce.New(c.enqueueDebounced, debounce.WithDelay(c.delay))
	c.worker = worker.NewSaveWorker(c.queue, c,
		worker.WithName(gameID),
		worker.WithLogger(c.logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.worker.Run(ctx)
	return c
}

// Save requests an immediate save and waits for its round. A pending
// debounced save is dropped since this round carries the same state.
func (c *Coordinator) Save(ctx context.Context, reason string) error {
	const op = "coordinator.save"

	if c.debounce.Cancel() {
		c.logger.Debug(ctx, "immediate save superseded pending autosave", logger.String("reason", reason))
	}

	done := make(chan error, 1)
	if !c.queue.Enqueue(ctx, queue.Ticket{Mode: metrics.ModeImmediate, Reason: reason, Done: done}) {
		if ctx.Err() != nil {
			return errs.Wrap(op, errs.ErrPersistence, ctx.Err())
		}
		return errs.New(op, errs.ErrClosed)
	}

	select {
	case err := <-done:
		if err != nil && errs.KindOf(err) == nil {
			// the worker answers with a bare context error on teardown
			return errs.Wrap(op, errs.ErrPersistence, err)
		}
		return err
	case <-ctx.Done():
		return errs.Wrap(op, errs.ErrPersistence, ctx.Err())
	}
}

// Schedule restarts the autosave countdown. No-op after Close.
func (c *Coordinator) Schedule() {
	c.debounce.Trigger()
}

func (c *Coordinator) enqueueDebounced() {
	if !c.queue.Enqueue(context.Background(), queue.Ticket{Mode: metrics.ModeDebounced, Reason: "autosave"}) {
		c.logger.Debug(context.Background(), "autosave dropped, queue closed")
	}
}

// Flush runs one save round. Called by the save worker only.
func (c *Coordinator) Flush(ctx context.Context, mode string) error {
	payload := c.snapshot()

	c.mu.Lock()
	c.status.Saving = true
	c.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, c.saveTimeout)
	start := time.Now()
	err := c.saver.SaveEvents(sctx, c.gameID, payload)
	cancel()
	elapsed := time.Since(start)

	metrics.RecordSaveDuration(float64(elapsed.Milliseconds()))

	c.mu.Lock()
	c.status.Saving = false
	if err != nil {
		c.status.Failures++
		c.status.LastError = err.Error()
	} else {
		c.status.Saves++
		c.status.LastError = ""
		c.status.LastSavedUnix = time.Now().Unix()
	}
	c.mu.Unlock()

	if err != nil {
		metrics.RecordSave(mode, metrics.ResultError)
		metrics.RecordErrorByComponent("coordinator", "save")
		c.logger.Warn(ctx, "save failed",
			logger.String("game", c.gameID),
			logger.String("mode", mode),
			logger.Int("events", len(payload)),
			logger.Bool("retryable", retryable(err)),
			logger.Error(err),
		)
		if errors.Is(err, errs.ErrPersistence) {
			return err
		}
		return errs.Wrap("coordinator.save", errs.ErrPersistence, err)
	}

	metrics.RecordSave(mode, metrics.ResultOK)
	c.logger.Debug(ctx, "saved",
		logger.String("game", c.gameID),
		logger.String("mode", mode),
		logger.Int("events", len(payload)),
		logger.Duration("took", elapsed),
	)
	return nil
}

// retryable reports whether a failed round is worth another attempt. Game
// API client errors are permanent; anything else may be transient.
func retryable(err error) bool {
	var apiErr *gameapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return true
}

// Status reports the last result and whether a save is in flight or pending.
func (c *Coordinator) Status() types.SaveStatus {
	c.mu.Lock()
	st := c.status
	c.mu.Unlock()
	st.Pending = c.debounce.Pending() || c.queue.Len(context.Background()) > 0
	return st
}

// Close flushes a pending autosave, stops the countdown for good and waits
// for the worker. It returns the result of that final flush, if any.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var final chan error
	if c.debounce.Close() {
		final = make(chan error, 1)
		c.queue.Enqueue(context.Background(), queue.Ticket{Mode: metrics.ModeDebounced, Reason: "close", Done: final})
	}
	_ = c.queue.Close()

	err := c.worker.Shutdown(ctx)
	c.cancel()
	if err != nil {
		<-c.worker.Done()
		return errs.Wrap("coordinator.close", errs.ErrPersistence, err)
	}
	if final != nil {
		return <-final
	}
	return nil
}
