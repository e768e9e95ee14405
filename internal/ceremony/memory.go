package ceremony

import (
	"context"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

type memoryEntry struct {
	data    webauthn.SessionData
	expires time.Time
}

// MemoryStore keeps ceremonies in process memory. Suitable for a single instance.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryEntry), now: time.Now}
}

// Put stores data until ttl or the session's own expiry elapses.
func (s *MemoryStore) Put(_ context.Context, key string, data webauthn.SessionData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.items[key] = memoryEntry{data: data, expires: expiry(data, ttl, now)}
	return nil
}

// Take returns and removes live session data.
func (s *MemoryStore) Take(_ context.Context, key string) (webauthn.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	delete(s.items, key)
	if !ok || s.now().After(entry.expires) {
		return webauthn.SessionData{}, ErrNotFound
	}
	return entry.data, nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for key, entry := range s.items {
		if now.After(entry.expires) {
			delete(s.items, key)
		}
	}
}
