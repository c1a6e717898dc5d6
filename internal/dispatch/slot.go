// Package dispatch delivers gesture snapshots to a consumer that may come and
// go. Undelivered snapshots never queue up: a single slot holds the newest
// one while no consumer is attached, and a trailing-edge debouncer coalesces
// bursts while one is.
package dispatch

// Slot is a single-value optional buffer.
type Slot[T any] struct {
	v   T
	set bool
}

// Store puts v into the slot, reporting whether it replaced a value.
func (s *Slot[T]) Store(v T) bool {
	replaced := s.set
	s.v, s.set = v, true
	return replaced
}

// Take removes and returns the stored value.
func (s *Slot[T]) Take() (T, bool) {
	v, ok := s.v, s.set
	var zero T
	s.v, s.set = zero, false
	return v, ok
}

// Peek returns the stored value without removing it.
func (s *Slot[T]) Peek() (T, bool) {
	return s.v, s.set
}

// Len returns 0 or 1.
func (s *Slot[T]) Len() int {
	if s.set {
		return 1
	}
	return 0
}
