package session

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryStore keeps sessions in a mutex-guarded map. With a non-zero
// TTL a background sweeper evicts sessions that sat idle longer than
// the TTL, so an abandoned upload does not hold image bytes forever.
type MemoryStore struct {
	sessions map[int64]*Session
	mu       sync.RWMutex

	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewMemoryStore creates an in-memory store. ttl of zero disables
// eviction entirely.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}

	if ttl > 0 {
		go s.sweep()
	}

	return s
}

func (s *MemoryStore) Put(_ context.Context, userID int64, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[userID]
	if !exists {
		return nil, ErrNotFound
	}
	if s.expired(sess, time.Now()) {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// Close stops the TTL sweeper. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) > s.ttl
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for userID, sess := range s.sessions {
				if s.expired(sess, now) {
					delete(s.sessions, userID)
				}
			}
			s.mu.Unlock()
		}
	}
}
