package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store provides in-memory transients and options.
// It serves tests and runs without Redis; nothing survives a restart.
type Store struct {
	mu         sync.RWMutex
	transients map[string]entry  // name -> value + expiry
	options    map[string]string // name -> value

	// Now is the clock used for expiry.
	Now func() time.Time
}

// NewStore creates an empty memory store
func NewStore() *Store {
	return &Store{
		transients: make(map[string]entry),
		options:    make(map[string]string),
		Now:        time.Now,
	}
}

// Get retrieves a transient. Expired entries read as missing.
func (s *Store) Get(_ context.Context, name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.transients[name]
	if !ok || !s.Now().Before(e.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a transient for ttl
func (s *Store) Set(_ context.Context, name string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("transient %s: ttl must be > 0, got %v", name, ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.transients[name] = entry{value: v, expiresAt: s.Now().Add(ttl)}
	return nil
}

// Delete removes a transient
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.transients, name)
	return nil
}

// FlushTransients removes every transient
func (s *Store) FlushTransients(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.transients)
	s.transients = make(map[string]entry)
	return n, nil
}

// Sweep drops expired transients and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	removed := 0
	for name, e := range s.transients {
		if !now.Before(e.expiresAt) {
			delete(s.transients, name)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored transients, expired ones included
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.transients)
}

// ─────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────

// GetOption returns an option value, "" when unset
func (s *Store) GetOption(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.options[name], nil
}

// SetOption stores an option
func (s *Store) SetOption(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.options[name] = value
	return nil
}

// DeleteOption removes an option
func (s *Store) DeleteOption(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.options, name)
	return nil
}

// Ping always succeeds, the store lives in process.
func (s *Store) Ping(context.Context) error { return nil }
