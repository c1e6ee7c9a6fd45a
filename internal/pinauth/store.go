package pinauth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds viewer sessions in memory. Sessions are never persisted;
// a restart invalidates every grant, which is the intended contract.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create opens a new session for one portfolio item. pinRequired seeds the
// authorization state from the catalog's PIN requirement.
func (s *Store) Create(portfolioID string, pinRequired bool) *Session {
	sess := &Session{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		State: AuthorizationState{
			Required: pinRequired,
		},
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sweepLocked()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists || s.expired(sess) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Grant marks the session as authorized. This is the only write path for
// Granted; nothing ever sets it back to false.
func (s *Store) Grant(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists || s.expired(sess) {
		return ErrSessionNotFound
	}
	sess.State.Granted = true
	return nil
}

func (s *Store) expired(sess *Session) bool {
	return s.ttl > 0 && time.Since(sess.CreatedAt) > s.ttl
}

func (s *Store) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
		}
	}
}
