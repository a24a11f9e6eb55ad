package session

import (
	"context"
	"sync"
	"time"

	"voice-console/shared/models"
)

// Store хранит credential сессии на стороне сервера.
// ttl - время простоя: каждое успешное Load продлевает сессию.
type Store interface {
	Save(ctx context.Context, id string, cred Credential, ttl time.Duration) error
	// Load возвращает models.ErrSessionNotFound, если сессии нет или она истекла.
	Load(ctx context.Context, id string) (Credential, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	cred      Credential
	ttl       time.Duration
	expiresAt time.Time
}

// MemoryStore - Store в памяти процесса (один экземпляр консоли, без redis).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, id string, cred Credential, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{cred: cred, ttl: ttl, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return "", models.ErrSessionNotFound
	}
	now := s.now()
	if e.ttl > 0 && now.After(e.expiresAt) {
		delete(s.entries, id)
		return "", models.ErrSessionNotFound
	}
	e.expiresAt = now.Add(e.ttl)
	s.entries[id] = e
	return e.cred, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Sweep удаляет истекшие сессии. Возвращает число удаленных.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.entries {
		if e.ttl > 0 && now.After(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// RunSweeper периодически вызывает Sweep, пока ctx не отменен.
func (s *MemoryStore) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
