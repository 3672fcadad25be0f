// Package repository holds the in-memory event timeline.
package repository

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okian/matchreel/internal/domain/errs"
	"github.com/okian/matchreel/internal/domain/model"
	"github.com/okian/matchreel/pkg/metrics"
)

// EventStore is a timestamp-ordered slice of events plus an ID index.
//
// Ordering: timestamp ASC; ties keep the order in which events entered the
// store (stable sort), so AI-delivered order survives equal timestamps.
type EventStore struct {
	mu     sync.RWMutex
	events []model.Event
	byID   map[string]int
	newID  func() string
	name   string
}

var _ Store = (*EventStore)(nil)

// NewEventStore creates an empty store with configuration options.
func NewEventStore(opts ...Option) *EventStore {
	s := &EventStore{
		byID:  make(map[string]int),
		newID: newUUID,
		name:  "events",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the canonical list. Events that already carry an ID keep it;
// the rest get a fresh one. Nothing is stored if any event is malformed.
func (s *EventStore) Load(events []model.Event) error {
	const op = "repository.load"
	next := make([]model.Event, len(events))
	seen := make(map[string]struct{}, len(events))
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return errs.Wrap(op, errs.ErrValidation, fmt.Errorf("event %d: %w", i, err))
		}
		if e.ID == "" {
			e.ID = s.newID()
		}
		if _, dup := seen[e.ID]; dup {
			return errs.Wrap(op, errs.ErrValidation, fmt.Errorf("event %d: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = struct{}{}
		next[i] = e
	}
	sortByTimestamp(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = next
	s.reindex()
	return nil
}

// All returns a copy of the ordered sequence.
func (s *EventStore) All() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Insert appends e (its pre-sort index is the current length), re-sorts by
// timestamp and returns e's position in the new order.
func (s *EventStore) Insert(e model.Event) (int, error) {
	const op = "repository.insert"
	if err := e.Validate(); err != nil {
		return -1, errs.Wrap(op, errs.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.newID()
	}
	if _, dup := s.byID[e.ID]; dup {
		return -1, errs.Wrap(op, errs.ErrValidation, fmt.Errorf("duplicate id %q", e.ID))
	}
	s.events = append(s.events, e)
	sortByTimestamp(s.events)
	s.reindex()
	return s.byID[e.ID], nil
}

// Get returns the event at index.
func (s *EventStore) Get(index int) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.events) {
		return model.Event{}, errs.Wrap("repository.get", errs.ErrNotFound, ErrIndexOutOfRange)
	}
	return s.events[index], nil
}

// Replace overwrites the event at index. The stored ID always wins over the
// one on e. Returns the event's position after re-sorting.
func (s *EventStore) Replace(index int, e model.Event) (int, error) {
	const op = "repository.replace"
	if err := e.Validate(); err != nil {
		return -1, errs.Wrap(op, errs.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.events) {
		return -1, errs.Wrap(op, errs.ErrNotFound, ErrIndexOutOfRange)
	}
	e.ID = s.events[index].ID
	s.events[index] = e
	sortByTimestamp(s.events)
	s.reindex()
	return s.byID[e.ID], nil
}

// ReplaceAll overwrites several events at once, keyed by index, then re-sorts
// a single time. Either every replacement is applied or none is.
func (s *EventStore) ReplaceAll(updates map[int]model.Event) error {
	const op = "repository.replace_all"
	for idx, e := range updates {
		if err := e.Validate(); err != nil {
			return errs.Wrap(op, errs.ErrValidation, fmt.Errorf("event %d: %w", idx, err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for idx := range updates {
		if idx < 0 || idx >= len(s.events) {
			return errs.Wrap(op, errs.ErrNotFound, ErrIndexOutOfRange)
		}
	}
	for idx, e := range updates {
		e.ID = s.events[idx].ID
		s.events[idx] = e
	}
	sortByTimestamp(s.events)
	s.reindex()
	return nil
}

// IDAt resolves an index to the event's stable ID.
func (s *EventStore) IDAt(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.events) {
		return "", errs.Wrap("repository.id_at", errs.ErrNotFound, ErrIndexOutOfRange)
	}
	return s.events[index].ID, nil
}

// IndexOf resolves a stable ID to its current index.
func (s *EventStore) IndexOf(id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return -1, errs.Wrap("repository.index_of", errs.ErrNotFound, ErrUnknownID)
	}
	return idx, nil
}

// Len returns the number of events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// reindex rebuilds the ID index. Caller holds the write lock.
func (s *EventStore) reindex() {
	s.byID = make(map[string]int, len(s.events))
	for i, e := range s.events {
		s.byID[e.ID] = i
	}
	metrics.UpdateStoreEvents(s.name, len(s.events))
}

func sortByTimestamp(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
}
