package set

import (
	"encoding/json"
	"sort"

	"golang.org/x/exp/constraints"
)

// Set is a collection of distinct items. It is not safe for concurrent writes;
// a Set that is fully built and no longer appended to may be read from many goroutines.
type Set[T comparable] struct {
	items map[T]struct{}
}

// New creates a new Set holding the given elements
func New[T comparable](elems ...T) Set[T] {
	s := Set[T]{
		items: make(map[T]struct{}, len(elems)),
	}
	s.Append(elems...)
	return s
}

// Append inserts elements into the set
func (s Set[T]) Append(elems ...T) {
	for _, elem := range elems {
		s.items[elem] = struct{}{}
	}
}

// Merge inserts every element of other into the set
func (s Set[T]) Merge(other Set[T]) {
	for elem := range other.items {
		s.items[elem] = struct{}{}
	}
}

// Contains checks if an element is in the set
func (s Set[T]) Contains(elem T) bool {
	_, ok := s.items[elem]
	return ok
}

func (s Set[T]) Len() int {
	return len(s.items)
}

// Equal reports whether both sets hold the same members
func (s Set[T]) Equal(other Set[T]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for elem := range s.items {
		if !other.Contains(elem) {
			return false
		}
	}
	return true
}

// Values returns all elements in the set as an unsorted slice
func (s Set[T]) Values() []T {
	v := make([]T, 0, len(s.items))
	for elem := range s.items {
		v = append(v, elem)
	}
	return v
}

// Ordered is a set of ordered elements that supports sorted Values
type Ordered[T constraints.Ordered] struct {
	Set[T]
}

// NewOrdered creates a new Ordered set
func NewOrdered[T constraints.Ordered](elems ...T) Ordered[T] {
	return Ordered[T]{
		Set: New[T](elems...),
	}
}

// Sorted wraps an existing set so its values come out sorted
func Sorted[T constraints.Ordered](s Set[T]) Ordered[T] {
	return Ordered[T]{Set: s}
}

// Values returns all elements in the set as a sorted slice
func (s Ordered[T]) Values() []T {
	v := s.Set.Values()
	sort.Slice(v, func(i, j int) bool {
		return v[i] < v[j]
	})
	return v
}

// MarshalJSON renders the set as a sorted JSON array
func (s Ordered[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}
