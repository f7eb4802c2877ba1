package storage

import (
	"context"
	"sync"
	"time"

	"secretsanta/internal/models"
)

type memoryEntry struct {
	draw      *models.Draw
	expiresAt time.Time // zero means never
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps draws in process memory. Records are copied on the way
// in and out, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the draw stored under id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Draw, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || entry.expired(s.now()) {
		return nil, ErrNotFound
	}
	return entry.draw.Clone(), nil
}

// Put stores a copy of d under d.ID.
func (s *MemoryStore) Put(ctx context.Context, d *models.Draw, ttl time.Duration) error {
	if err := checkDraw(d); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[d.ID] = memoryEntry{
		draw:      d.Clone(),
		expiresAt: expiry(s.now(), ttl),
	}
	return nil
}

// Delete drops the record for id if there is one.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// DeleteExpired removes every record whose expiry is at or before now.
func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len is the number of records held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
