package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	sessions map[string]*Session
	now      func() time.Time
	stopC    chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
}

// NewMemoryStore creates the store and starts a goroutine that drops expired
// sessions every cleanupInterval. Call Stop to release it.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return newMemoryStore(cleanupInterval, time.Now)
}

func newMemoryStore(cleanupInterval time.Duration, now func() time.Time) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &MemoryStore{
		sessions: make(map[string]*Session),
		now:      now,
		stopC:    make(chan struct{}),
	}

	go s.cleanup(cleanupInterval)

	return s
}

// Get returns a copy of the stored session
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.now()) {
		return nil, ErrNotFound
	}

	return sess.clone(), nil
}

// Save stores a copy of sess
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess.clone()
	return nil
}

// Delete removes the session, deleting a missing id is not an error
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions including expired ones not yet collected
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop stops the cleanup goroutine
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopC) })
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopC:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
		}
	}
}
