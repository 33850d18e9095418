package batch

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Set is the ordered collection of pending operations. Order is creation
// order and drives the "Operation N" numbering shown to the user.
//
// A Set is owned by whoever drives the UI and is passed around by pointer.
// Every read returns a deep copy, and Update swaps in a fully mutated copy, so
// a reader never observes a half-applied change.
type Set struct {
	mu    sync.RWMutex
	ops   []*Operation
	newID func() string
}

// SetOption configures a Set during construction.
type SetOption func(*Set)

// WithIDGenerator overrides how operation ids are produced.
func WithIDGenerator(fn func() string) SetOption {
	return func(s *Set) {
		s.newID = fn
	}
}

// NewSet returns an empty Set that assigns random UUIDs to new operations.
func NewSet(opts ...SetOption) *Set {
	s := &Set{newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a new empty, expanded operation and returns a copy of it.
func (s *Set) Add() Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := NewOperation(s.newID())
	s.ops = append(s.ops, &op)
	return op.Clone()
}

// Remove deletes the operation with id. It reports whether one was removed.
func (s *Set) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.ops = slices.Delete(s.ops, idx, idx+1)
	return true
}

// Get returns a copy of the operation with id.
func (s *Set) Get(id string) (Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Operation{}, false
	}
	return s.ops[idx].Clone(), true
}

// Update runs fn against a copy of the operation with id and stores the copy
// only when fn succeeds. Other operations are untouched.
func (s *Set) Update(id string, fn func(*Operation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	next := s.ops[idx].Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.ops[idx] = &next
	return nil
}

// RemoveFile removes path from the operation with id and removes the
// operation itself when that leaves it empty. The bool reports the pruning.
func (s *Set) RemoveFile(id, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return false, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	next := s.ops[idx].Clone()
	empty, err := next.RemoveFile(path)
	if err != nil {
		return false, err
	}
	if empty {
		s.ops = slices.Delete(s.ops, idx, idx+1)
		return true, nil
	}
	s.ops[idx] = &next
	return false, nil
}

// RemovePaths drops the listed files from each operation, keyed by
// operation id, and prunes operations left empty. Unknown ids and paths are
// ignored. It returns the number of files removed.
func (s *Set) RemovePaths(paths map[string][]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.ops[:0]
	for _, op := range s.ops {
		targets, ok := paths[op.ID]
		if !ok {
			kept = append(kept, op)
			continue
		}
		next := op.Clone()
		for _, path := range targets {
			if _, err := next.RemoveFile(path); err == nil {
				removed++
			}
		}
		if len(next.Files) > 0 {
			kept = append(kept, &next)
		}
	}
	clear(s.ops[len(kept):])
	s.ops = kept
	return removed
}

// Snapshot returns deep copies of every operation in order.
func (s *Set) Snapshot() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Operation, len(s.ops))
	for i, op := range s.ops {
		out[i] = op.Clone()
	}
	return out
}

// Len returns the number of operations.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ops)
}

// Index returns the 1-based display number of the operation with id, or 0.
func (s *Set) Index(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id) + 1
}

// Clear removes every operation.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

// Prune removes operations that have no files and returns how many went.
func (s *Set) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.ops)
	s.ops = slices.DeleteFunc(s.ops, func(op *Operation) bool {
		return len(op.Files) == 0
	})
	return before - len(s.ops)
}

func (s *Set) indexLocked(id string) int {
	return slices.IndexFunc(s.ops, func(op *Operation) bool {
		return op.ID == id
	})
}
