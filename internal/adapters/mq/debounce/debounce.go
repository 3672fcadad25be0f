// Package debounce runs a function once activity has been quiet for a delay.
package debounce

import (
	"sync"
	"time"

	"github.com/okian/matchreel/pkg/metrics"
)

// DefaultDelay is the quiet period used when none is configured.
const DefaultDelay = time.Second

// Option applies a configuration option to the Debouncer.
type Option func(*Debouncer)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.delay = d
		}
	}
}

// Debouncer is a trailing-edge timer. Each Trigger restarts the countdown.
// Once closed, fn never runs again.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	fn     func()
	timer  *time.Timer
	gen    uint64
	closed bool
}

// New creates a debouncer that calls fn after the quiet period.
func New(fn func(), opts ...Option) *Debouncer {
	d := &Debouncer{delay: DefaultDelay, fn: fn}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger starts or restarts the countdown. No-op after Close.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		metrics.RecordDebounceReschedule()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs fn unless the timer was superseded, cancelled or closed in the
// meantime. A stopped timer whose func already started is caught by gen.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Cancel drops a pending countdown. Reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a countdown is running.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels any countdown and disables future triggers. Reports whether
// a countdown was pending.
func (d *Debouncer) Close() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return d.cancelLocked()
}
