package events

import (
	"sync"
)

// Store keeps the most recent journal entries in a ring. Oldest
// entries are evicted once the cap is reached.
type Store struct {
	mu   sync.RWMutex
	cap  int
	data []Event
}

// NewStore creates a store retaining up to cap entries; cap <= 0
// falls back to 256.
func NewStore(cap int) *Store {
	if cap <= 0 {
		cap = 256
	}
	return &Store{cap: cap}
}

// Append adds an entry, evicting the oldest when full.
func (s *Store) Append(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, e)
	if len(s.data) > s.cap {
		s.data = s.data[len(s.data)-s.cap:]
	}
}

// Snapshot returns the retained entries, oldest first.
func (s *Store) Snapshot() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.data))
	copy(out, s.data)
	return out
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
