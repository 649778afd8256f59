// Package keylock provides a mutex per string key.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map hands out one mutex per key. Entries are reference counted and removed
// once no goroutine holds or waits for them.
type Map struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty Map.
func New() *Map {
	return &Map{entries: make(map[string]*entry)}
}

// Lock blocks until the key is held and returns the function that releases it.
func (m *Map) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
	}
}

// Len returns the number of keys currently held or waited on.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
