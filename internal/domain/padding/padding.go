// Package padding holds the per-event trim windows used for clip extraction.
//
// The model is plain arithmetic over a map and is not safe for concurrent
// use; the owning session serializes access.
package padding

import "github.com/okian/matchreel/internal/domain/model"

// Default padding configuration constants.
const (
	DefaultMax    = 15
	DefaultBefore = 5
	DefaultAfter  = 3
)

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithMax sets the upper clamp bound for both sides of the window.
func WithMax(maxPadding int) Option {
	return func(m *Model) {
		if maxPadding > 0 {
			m.max = maxPadding
		}
	}
}

// WithDefault sets the window returned for events without an explicit one.
// Values are clamped against the configured maximum when the model is built.
func WithDefault(before, after int) Option {
	return func(m *Model) {
		m.def = model.Padding{Before: before, After: after}
	}
}

// Model maps event IDs to trim windows.
type Model struct {
	max     int
	def     model.Padding
	windows map[string]model.Padding
}

// New creates a padding model with configuration options.
func New(opts ...Option) *Model {
	m := &Model{
		max:     DefaultMax,
		def:     model.Padding{Before: DefaultBefore, After: DefaultAfter},
		windows: make(map[string]model.Padding),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.def = m.clamp(m.def.Before, m.def.After)
	return m
}

// Max returns the clamp bound.
func (m *Model) Max() int { return m.max }

// Default returns the window used for events without an explicit one.
func (m *Model) Default() model.Padding { return m.def }

// Get returns the window for id, or the default when unset.
func (m *Model) Get(id string) model.Padding {
	if p, ok := m.windows[id]; ok {
		return p
	}
	return m.def
}

// Set clamps both values to [0, max], stores and returns the clamped window.
func (m *Model) Set(id string, before, after int) model.Padding {
	p := m.clamp(before, after)
	m.windows[id] = p
	return p
}

// Seed stores a window coming from persisted state. It is clamped like Set.
func (m *Model) Seed(id string, p model.Padding) {
	m.Set(id, p.Before, p.After)
}

// Reset drops every explicit window.
func (m *Model) Reset() {
	m.windows = make(map[string]model.Padding)
}

// TotalSeconds sums before+after over ids.
func (m *Model) TotalSeconds(ids []string) int {
	total := 0
	for _, id := range ids {
		total += m.Get(id).Total()
	}
	return total
}

func (m *Model) clamp(before, after int) model.Padding {
	return model.Padding{Before: clampInt(before, 0, m.max), After: clampInt(after, 0, m.max)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
