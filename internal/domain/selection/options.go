// Package selection implements the ordered selection sets used to pick
// events for clip rendering.
package selection

// Option applies a configuration option to a Set.
type Option func(*Set)

// WithCap bounds the number of members. Zero or negative means unbounded.
func WithCap(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.cap = n
		} else {
			s.cap = 0
		}
	}
}
