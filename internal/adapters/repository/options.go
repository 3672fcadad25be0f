// Package repository holds the in-memory event timeline.
package repository

import "github.com/google/uuid"

// Option applies a configuration option to the EventStore.
type Option func(*EventStore)

// WithIDGenerator overrides how stable event IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *EventStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithName labels the store in metrics.
func WithName(name string) Option {
	return func(s *EventStore) {
		if name != "" {
			s.name = name
		}
	}
}

func newUUID() string { return uuid.NewString() }
