// Package tokenstore holds the short-lived access credential.
//
// The store has no network side effects. Reads are safe from any
// goroutine. Set and Clear are last-write-wins; Replace only writes over
// the credential it was given.
package tokenstore

import "sync"

// Store is the credential holder consumed by the HTTP client, the session
// controller and the notification stream.
type Store interface {
	// Get returns the credential and whether one is present.
	Get() (string, bool)
	Set(credential string)
	// Replace stores next only while old is the current credential and
	// reports whether it did.
	Replace(old, next string) bool
	Clear()
}

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	value string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.value != ""
}

// Set stores credential; an empty string is equivalent to Clear.
func (s *MemoryStore) Set(credential string) {
	s.mu.Lock()
	s.value = credential
	s.mu.Unlock()
}

func (s *MemoryStore) Replace(old, next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == "" || s.value != old {
		return false
	}
	s.value = next
	return true
}

func (s *MemoryStore) Clear() {
	s.Set("")
}
