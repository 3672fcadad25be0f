// Package repository holds the in-memory event timeline.
package repository

import "github.com/okian/matchreel/internal/domain/model"

// Store provides read/write access to the ordered match timeline.
//
// Positions are "original indices": the position of an event in the
// timestamp-sorted sequence. They are stable while the list length is
// unchanged; Insert may shift every later position.
type Store interface {
	// Load replaces the canonical list, sorting it by timestamp.
	Load(events []model.Event) error
	// All returns a copy of the ordered sequence.
	All() []model.Event
	// Insert adds an event, re-sorts and returns its new position.
	Insert(e model.Event) (int, error)
	// Get returns the event at index.
	Get(index int) (model.Event, error)
	// Replace overwrites the event at index, keeping its ID, and re-sorts.
	// Returns the event's position after the re-sort.
	Replace(index int, e model.Event) (int, error)
	// IDAt resolves an index to the event's stable ID.
	IDAt(index int) (string, error)
	// IndexOf resolves a stable ID to its current index.
	IndexOf(id string) (int, error)
	// Len returns the number of events.
	Len() int
}
