package registry

import "sync"

// Shared guards a Hub with a mutex so several goroutines can use it.
//
// Handles obtained inside Do must not be used after Do returns; copy out
// whatever values are needed instead.
type Shared struct {
	mu  sync.Mutex
	hub *Hub
}

// NewShared wraps hub. The caller must not use hub directly afterwards.
func NewShared(hub *Hub) *Shared {
	return &Shared{hub: hub}
}

// Do runs fn with exclusive access to the hub and returns its error.
func (s *Shared) Do(fn func(hub *Hub) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.hub)
}

// Destroy destroys the wrapped hub.
func (s *Shared) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub.Destroy()
}
