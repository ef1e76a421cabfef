package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory session store with TTL.
// Used for development and tests; production deployments use Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates an in-memory session store with the specified TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
	}
	go s.cleanupLoop()
	return s
}

// Get retrieves a session by id.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[sessionID]
	if !found || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	data := entry.data
	return &data, nil
}

// Set stores session data, resetting the entry's lifetime.
func (s *MemoryStore) Set(_ context.Context, sessionID string, data Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[sessionID] = &memoryEntry{
		data:      data,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sessionID)
	return nil
}

// cleanup removes expired entries.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// cleanupLoop runs periodic cleanup of expired entries.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.cleanup()
	}
}
