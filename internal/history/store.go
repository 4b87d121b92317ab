package history

import (
	"errors"
	"fmt"
	"slices"
)

// ErrOutOfRange is returned by At for an index outside [0, Count()).
var ErrOutOfRange = errors.New("history index out of range")

// Store is the clipboard history, index 0 being the newest entry.
//
// Store is not safe for concurrent use. Callers that share one across
// goroutines serialise access themselves (see package hub).
type Store struct {
	entries []Entry
	limit   int // 0 = unbounded
}

// NewStore returns an empty, unbounded Store.
func NewStore() *Store {
	return &Store{}
}

// Add inserts e at the front. If e has the same payload and MIME type as the
// current front entry the call is a no-op and Add returns false.
func (s *Store) Add(e Entry) bool {
	if len(s.entries) > 0 && s.entries[0].Same(e) {
		return false
	}
	s.entries = slices.Insert(s.entries, 0, e.Clone())
	s.trim()
	return true
}

// Remove deletes the entry at index i. An out-of-range index is ignored and
// Remove returns false.
func (s *Store) Remove(i int) bool {
	if i < 0 || i >= len(s.entries) {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

// At returns a copy of the entry at index i.
func (s *Store) At(i int) (Entry, error) {
	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("%w: %d (count %d)", ErrOutOfRange, i, len(s.entries))
	}
	return s.entries[i].Clone(), nil
}

// Count returns the number of entries.
func (s *Store) Count() int { return len(s.entries) }

// Entries returns a copy of all entries, newest first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Limit returns the capacity bound, 0 meaning unbounded.
func (s *Store) Limit() int { return s.limit }

// SetLimit bounds the store to n entries, dropping the oldest ones beyond it.
// n <= 0 removes the bound. It returns the number of entries dropped.
func (s *Store) SetLimit(n int) int {
	if n < 0 {
		n = 0
	}
	s.limit = n
	return s.trim()
}

func (s *Store) trim() int {
	if s.limit == 0 || len(s.entries) <= s.limit {
		return 0
	}
	dropped := len(s.entries) - s.limit
	clear(s.entries[s.limit:])
	s.entries = s.entries[:s.limit]
	return dropped
}
