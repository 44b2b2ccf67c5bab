package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry holds a session with its expiration time.
type entry struct {
	session   *Session
	expiresAt time.Time
}

// Store keeps sessions in memory and expires them after ttl without access.
// This is suitable for single-instance deployments.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	policy   Policy
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStore creates a new in-memory session store.
// ttl specifies how long idle sessions are kept before expiration.
// cleanupInterval specifies how often to run the cleanup routine.
func NewStore(ttl, cleanupInterval time.Duration, policy Policy) *Store {
	store := &Store{
		sessions: make(map[string]entry),
		ttl:      ttl,
		policy:   policy,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cleanupInterval)

	return store
}

// Create starts a new empty session.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.policy)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = entry{
		session:   sess,
		expiresAt: time.Now().Add(s.ttl),
	}

	return sess
}

// Get returns the session with id and extends its lifetime.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now()
	if now.After(e.expiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}

	e.expiresAt = now.Add(s.ttl)
	s.sessions[id] = e
	return e.session, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Stop stops the background cleanup goroutine.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// cleanupLoop periodically removes expired sessions.
func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes all expired sessions.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

// Stats returns the number of live sessions and the longest idle time.
func (s *Store) Stats() (count int, maxIdle time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count = len(s.sessions)
	if count == 0 {
		return 0, 0
	}

	now := time.Now()
	for _, e := range s.sessions {
		lastSeen := e.expiresAt.Add(-s.ttl)
		if idle := now.Sub(lastSeen); idle > maxIdle {
			maxIdle = idle
		}
	}

	return count, maxIdle
}
