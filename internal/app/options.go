package app

import (
	"time"

	"github.com/okian/matchreel/internal/domain/padding"
	"github.com/okian/matchreel/pkg/logger"
)

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	padding          []padding.Option
	clipCap          int
	includeScoreline bool
	coordinator      []CoordinatorOption
	logger           logger.Logger
}

// WithPadding passes options to the session's padding model.
func WithPadding(opts ...padding.Option) SessionOption {
	return func(c *sessionConfig) {
		c.padding = append(c.padding, opts...)
	}
}

// WithClipCap bounds the single-clip selection. Zero or less keeps the default.
func WithClipCap(n int) SessionOption {
	return func(c *sessionConfig) {
		if n > 0 {
			c.clipCap = n
		}
	}
}

// WithIncludeScoreline asks the render service to overlay the score.
func WithIncludeScoreline(on bool) SessionOption {
	return func(c *sessionConfig) {
		c.includeScoreline = on
	}
}

// WithSessionAutosaveDelay sets the padding autosave quiet period.
func WithSessionAutosaveDelay(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.coordinator = append(c.coordinator, WithAutosaveDelay(d))
	}
}

// WithSessionSaveTimeout bounds a single save round.
func WithSessionSaveTimeout(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.coordinator = append(c.coordinator, WithSaveTimeout(d))
	}
}

// WithSessionLogger sets a custom logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
