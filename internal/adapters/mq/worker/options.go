// Package worker runs save rounds pulled off the save queue.
package worker

import (
	"github.com/okian/matchreel/pkg/logger"
)

// Option applies a configuration option to the SaveWorker.
type Option func(*SaveWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *SaveWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *SaveWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
