// internal/snapshot/store.go
package snapshot

import (
	"sort"
	"sync"
	"time"
)

// Entry is the latest captured result for one snapshot key.
type Entry struct {
	Output string
	Err    error
	At     time.Time
}

// OK reports whether the last capture succeeded.
func (e Entry) OK() bool { return e.Err == nil }

// Store keeps the latest entry per key. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// Put replaces the entry for key.
func (s *Store) Put(key, output string, err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Output: output, Err: err, At: at}
}

// Get returns the entry for key, if present.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
}
