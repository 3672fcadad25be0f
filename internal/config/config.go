// Package config defines process configuration and its loading.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and MATCHREEL_* env vars over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogJSON switches the log handler to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// GameAPIURL is the base URL of the Game API.
	GameAPIURL string `koanf:"game_api_url" validate:"required,http_url"`

	// RenderURL is the base URL of the clip render service.
	RenderURL string `koanf:"render_url" validate:"required,http_url"`

	// APIToken is sent as a bearer token to both services.
	APIToken string `koanf:"api_token"`

	// HTTPTimeoutMS bounds Game API requests.
	HTTPTimeoutMS int `koanf:"http_timeout_ms" validate:"gt=0"`

	// RenderTimeoutMS bounds clip render requests.
	RenderTimeoutMS int `koanf:"render_timeout_ms" validate:"gt=0"`

	// MaxPadding is the upper clamp for both trim window sides, in seconds.
	MaxPadding int `koanf:"max_padding" validate:"gt=0"`

	// DefaultBeforePadding and DefaultAfterPadding apply to events without
	// an explicit window.
	DefaultBeforePadding int `koanf:"default_before_padding" validate:"gte=0,ltefield=MaxPadding"`
	DefaultAfterPadding  int `koanf:"default_after_padding" validate:"gte=0,ltefield=MaxPadding"`

	// ClipSelectionCap bounds the single-clip selection.
	ClipSelectionCap int `koanf:"clip_selection_cap" validate:"gt=0"`

	// AutosaveDelayMS is the padding autosave quiet period.
	AutosaveDelayMS int `koanf:"autosave_delay_ms" validate:"gt=0"`

	// IncludeScoreline asks the render service to overlay the score.
	IncludeScoreline bool `koanf:"include_scoreline"`

	// ShutdownTimeoutMS bounds graceful shutdown, including final saves.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" validate:"gt=0"`
}

// New returns a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		GameAPIURL:           "http://localhost:9081",
		RenderURL:            "http://localhost:9082",
		HTTPTimeoutMS:        10_000,
		RenderTimeoutMS:      300_000,
		MaxPadding:           15,
		DefaultBeforePadding: 5,
		DefaultAfterPadding:  3,
		ClipSelectionCap:     5,
		AutosaveDelayMS:      1_000,
		ShutdownTimeoutMS:    10_000,
	}
}

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// RenderTimeout returns RenderTimeoutMS as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutMS) * time.Millisecond
}

// AutosaveDelay returns AutosaveDelayMS as a duration.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
