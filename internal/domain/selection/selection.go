// Package selection implements the ordered selection sets used to pick
// events for clip rendering.
//
// Membership order is insertion order: the first event added is the first
// clip spliced downstream, so removal never reorders the survivors.
package selection

// DefaultClipCap bounds the single-clip selection flow.
const DefaultClipCap = 5

// Selector is the contract shared by both selection flows.
type Selector interface {
	// Toggle adds id when absent (subject to the cap) or removes it when
	// present. Returns whether id is selected afterwards.
	Toggle(id string) bool
	// Add inserts id. Adding past the cap, or adding a member, is a no-op
	// that returns false.
	Add(id string) bool
	// Remove drops id if present.
	Remove(id string) bool
	// SelectAll adds every id in order until the cap is reached.
	SelectAll(ids []string) int
	// Clear empties the set.
	Clear()
	// Contains reports membership.
	Contains(id string) bool
	// Items returns members in insertion order.
	Items() []string
	// Len returns the member count.
	Len() int
	// Cap returns the bound, zero when unbounded.
	Cap() int
}

// Set is an insertion-ordered set of event IDs with an optional cap. It is
// not safe for concurrent use.
type Set struct {
	order []string
	index map[string]int
	cap   int
}

var _ Selector = (*Set)(nil)

// New creates a set with configuration options.
func New(opts ...Option) *Set {
	s := &Set{index: make(map[string]int)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle adds or removes id.
func (s *Set) Toggle(id string) bool {
	if s.Contains(id) {
		s.Remove(id)
		return false
	}
	return s.Add(id)
}

// Add inserts id unless it is already a member or the set is full.
func (s *Set) Add(id string) bool {
	if s.Contains(id) || s.full() {
		return false
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Remove drops id if present.
func (s *Set) Remove(id string) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}
	delete(s.index, id)
	s.order = append(s.order[:pos], s.order[pos+1:]...)
	for i := pos; i < len(s.order); i++ {
		s.index[s.order[i]] = i
	}
	return true
}

// SelectAll adds ids in order and returns how many were newly added.
func (s *Set) SelectAll(ids []string) int {
	added := 0
	for _, id := range ids {
		if s.full() {
			break
		}
		if s.Add(id) {
			added++
		}
	}
	return added
}

// Retain drops every member for which keep returns false.
func (s *Set) Retain(keep func(id string) bool) {
	for _, id := range s.Items() {
		if !keep(id) {
			s.Remove(id)
		}
	}
}

// Clear empties the set.
func (s *Set) Clear() {
	s.order = nil
	s.index = make(map[string]int)
}

// Contains reports membership.
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Items returns a copy of the members in insertion order.
func (s *Set) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the member count.
func (s *Set) Len() int { return len(s.order) }

// Cap returns the bound, zero when unbounded.
func (s *Set) Cap() int { return s.cap }

func (s *Set) full() bool {
	return s.cap > 0 && len(s.order) >= s.cap
}
