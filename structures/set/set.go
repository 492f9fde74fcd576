// Package set provides a generic map-backed set.
package set

// Set is an unordered collection of unique values.
// The zero value is a usable empty set for reads; [Set.Add] allocates as needed.
type Set[T comparable] map[T]struct{}

// New creates a new [Set] from the given values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts values and returns the (possibly newly allocated) set.
func (s Set[T]) Add(vals ...T) Set[T] {
	if s == nil {
		s = make(Set[T], len(vals))
	}
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Remove deletes values from the set and returns it.
func (s Set[T]) Remove(vals ...T) Set[T] {
	for _, v := range vals {
		delete(s, v)
	}
	return s
}

// Has reports whether val is present.
func (s Set[T]) Has(val T) bool {
	_, ok := s[val]
	return ok
}

// Len returns the number of values in the set.
func (s Set[T]) Len() int {
	return len(s)
}

// Slice returns the values in arbitrary order, or nil for an empty set.
func (s Set[T]) Slice() []T {
	if len(s) == 0 {
		return nil
	}
	vals := make([]T, 0, len(s))
	for v := range s {
		vals = append(vals, v)
	}
	return vals
}
