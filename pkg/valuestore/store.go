// Package valuestore implements the inter-plugin value store: a
// process-local, string-keyed multimap of opaque values shared between the
// core driver and every loaded plugin.
//
// The store never interprets what it holds. Lifetime and typing of a value
// are a contract between the plugin that pushes it and the plugin(s) that
// read it back, documented out-of-band by the key constants in keys.go. A
// producer that owns a key is expected to remove everything it pushed
// during its unload callback; [Store.LeakReport] lets the driver verify that
// on shutdown.
package valuestore

import "sync"

// Store is a string-keyed multimap of opaque values, ordered per key.
//
// It is only ever touched from the single driver goroutine (see
// internal/driver), so the mutex here guards against accidental concurrent
// use rather than expressing a genuine concurrency requirement.
type Store struct {
	mu   sync.Mutex
	data map[string][]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]any)}
}

// PushFront inserts v at the front of key's deque.
func (s *Store) PushFront(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]any{v}, s.data[key]...)
}

// PushBack inserts v at the back of key's deque.
func (s *Store) PushBack(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append(s.data[key], v)
}

// PopFront removes and returns the front value of key's deque.
// ok is false if the deque is empty or absent.
func (s *Store) PopFront(key string) (v any, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := s.data[key]
	if len(vals) == 0 {
		return nil, false
	}

	v = vals[0]
	s.data[key] = vals[1:]

	return v, true
}

// PopBack removes and returns the back value of key's deque.
// ok is false if the deque is empty or absent.
func (s *Store) PopBack(key string) (v any, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := s.data[key]
	if len(vals) == 0 {
		return nil, false
	}

	v = vals[len(vals)-1]
	s.data[key] = vals[:len(vals)-1]

	return v, true
}

// Get returns the value at index i of key's deque (0 = front).
// ok is false if the index is out of range.
func (s *Store) Get(key string, i int) (v any, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := s.data[key]
	if i < 0 || i >= len(vals) {
		return nil, false
	}

	return vals[i], true
}

// Len returns the number of values stored under key. Absent keys have
// length 0.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data[key])
}

// Remove deletes every value stored under key.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// LeakReport returns the set of keys that still hold at least one value,
// mapped to their remaining length. An empty, non-nil map means clean
// shutdown (testable property 6).
func (s *Store) LeakReport() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	leaks := make(map[string]int)

	for k, v := range s.data {
		if len(v) != 0 {
			leaks[k] = len(v)
		}
	}

	return leaks
}
