// Package set has a generic set for ids and handles.
package set

import (
	"iter"
	"maps"
)

// Set is an unordered collection of distinct values.
// The zero value is an empty set ready to use.
type Set[T comparable] map[T]struct{}

// Of returns a set holding the given values.
func Of[T comparable](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, value := range values {
		s[value] = struct{}{}
	}

	return s
}

// Insert adds the value and reports whether it was not yet part of the set.
func (s *Set[T]) Insert(value T) bool {
	if *s == nil {
		*s = make(Set[T])
	}

	if _, exists := (*s)[value]; exists {
		return false
	}

	(*s)[value] = struct{}{}
	return true
}

// Remove deletes the value and reports whether it was part of the set.
func (s Set[T]) Remove(value T) bool {
	if _, exists := s[value]; !exists {
		return false
	}

	delete(s, value)
	return true
}

func (s Set[T]) Has(value T) bool {
	_, exists := s[value]
	return exists
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) All() iter.Seq[T] {
	return maps.Keys(s)
}

func (s Set[T]) Clear() {
	clear(s)
}
