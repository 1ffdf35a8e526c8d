package staging

import (
	"context"
	"sync"
	"time"

	"github.com/bizlink/backend/internal/domain/bulk"
)

// MemoryStore is an in-memory implementation of bulk.SessionStore.
// Suitable for single-instance deployments; use RedisStore when confirm
// may land on a different process than validate.
type MemoryStore struct {
	sessions map[string]*bulk.UploadSession
	mu       sync.RWMutex
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates an in-memory session store. If sweepInterval is
// positive a background goroutine sweeps expired sessions; call Stop to
// shut it down.
func NewMemoryStore(ttl, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*bulk.UploadSession),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepExpired(context.Background(), s.ttl)
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background sweep goroutine
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Create stores a new session
func (s *MemoryStore) Create(ctx context.Context, session *bulk.UploadSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

// Get returns a live session without consuming it
func (s *MemoryStore) Get(ctx context.Context, id string) (*bulk.UploadSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok || s.expired(session) {
		return nil, bulk.ErrSessionNotFound
	}
	return session, nil
}

// Take atomically retrieves and removes a session. The lock spans both
// the lookup and the delete so concurrent confirms see exactly one winner.
func (s *MemoryStore) Take(ctx context.Context, id string) (*bulk.UploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, bulk.ErrSessionNotFound
	}
	delete(s.sessions, id)
	if s.expired(session) {
		return nil, bulk.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session if present
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// SweepExpired removes sessions older than maxAge
func (s *MemoryStore) SweepExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, session := range s.sessions {
		if session.Age() > maxAge {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) expired(session *bulk.UploadSession) bool {
	return s.ttl > 0 && session.Age() > s.ttl
}

var _ bulk.SessionStore = (*MemoryStore)(nil)
