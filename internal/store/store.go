// Package store keeps the enrolled embeddings of the current user in memory.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
)

// Snapshot is a point-in-time copy of the store. Vectors are shared with the
// store and must not be modified.
type Snapshot map[string]embedding.Vector

// Names returns the snapshot keys in sorted order
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Store maps identity names to unit embeddings. Every stored vector is unit
// length and all share one dimension.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]embedding.Vector
	dimension int
	fixed     bool
}

// New creates an empty store. A positive dimension is enforced on every
// Put; otherwise the first stored vector sets it until the store is empty.
func New(dimension int) *Store {
	return &Store{
		entries:   make(map[string]embedding.Vector),
		dimension: dimension,
		fixed:     dimension > 0,
	}
}

// Get returns a copy of the embedding for name
func (s *Store) Get(name string) (embedding.Vector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// Put stores v under name, overwriting any previous entry
func (s *Store) Put(name string, v embedding.Vector) error {
	if name == "" {
		return domain.ErrInvalidName
	}
	if !embedding.IsUnit(v) {
		return domain.ErrNotUnitVector
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDimensionLocked(len(v), name); err != nil {
		return err
	}
	s.entries[name] = v.Clone()
	return nil
}

func (s *Store) checkDimensionLocked(n int, name string) error {
	dim := s.dimension
	if !s.fixed && len(s.entries) == 0 {
		dim = 0
	}
	// a sole entry being overwritten may change the dimension
	if !s.fixed && len(s.entries) == 1 {
		if _, ok := s.entries[name]; ok {
			dim = 0
		}
	}

	if dim > 0 && n != dim {
		return domain.ErrDimensionMismatch.WithError(fmt.Errorf("%q has %d values, store holds %d", name, n, dim))
	}
	if !s.fixed {
		s.dimension = n
	}
	return nil
}

// Remove deletes name and reports whether it was present
func (s *Store) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[name]
	delete(s.entries, name)
	return ok
}

// Snapshot copies the current entries
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, len(s.entries))
	for name, v := range s.entries {
		snap[name] = v
	}
	return snap
}

// Names lists enrolled names in sorted order
func (s *Store) Names() []string {
	return s.Snapshot().Names()
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Replace swaps the whole content for entries. Nothing changes if any entry
// is invalid.
func (s *Store) Replace(entries map[string]embedding.Vector) error {
	next := make(map[string]embedding.Vector, len(entries))
	dim := 0
	if s.fixed {
		dim = s.dimension
	}

	for name, v := range entries {
		if name == "" {
			return domain.ErrInvalidName
		}
		if !embedding.IsUnit(v) {
			return domain.ErrNotUnitVector.WithError(fmt.Errorf("entry %q", name))
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return domain.ErrDimensionMismatch.WithError(fmt.Errorf("%q has %d values, expected %d", name, len(v), dim))
		}
		next[name] = v.Clone()
	}

	s.mu.Lock()
	s.entries = next
	if !s.fixed {
		s.dimension = dim
	}
	s.mu.Unlock()
	return nil
}

// Dimension returns the enforced dimension, or 0 when it is not fixed
func (s *Store) Dimension() int {
	if !s.fixed {
		return 0
	}
	return s.dimension
}

// Clear removes every entry
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]embedding.Vector)
	if !s.fixed {
		s.dimension = 0
	}
	s.mu.Unlock()
}
