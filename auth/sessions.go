package auth

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/internal/util"
)

// sessionIDBytes sized so session ids are 64 hex characters.
const sessionIDBytes = 32

// Session is the server-side state for one cookie session.
type Session struct {
	ID         string
	IdentityID string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// SessionStore holds sessions in RAM with a fixed capacity and an absolute
// TTL. When full, the least-recently-used session is evicted. Clients get
// no hint of remaining lifetime.
type SessionStore struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List               // front = most recently used
	byID     map[string]*list.Element // element value is *Session
	now      func() time.Time
	log      zerolog.Logger
}

// NewSessionStore creates a store holding at most capacity sessions, each
// valid for ttl from creation.
func NewSessionStore(capacity int, ttl time.Duration, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		byID:     make(map[string]*list.Element, capacity),
		now:      time.Now,
		log:      log.With().Str("component", "sessions").Logger(),
	}
}

// Create mints a session for the identity. The id is cryptographically
// random and opaque.
func (s *SessionStore) Create(identityID string) (*Session, error) {
	id, err := util.RandomHex(sessionIDBytes)
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := &Session{
		ID:         id,
		IdentityID: identityID,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if s.order.Len() >= s.capacity {
		s.evictLRULocked()
	}
	s.byID[id] = s.order.PushFront(session)
	return session, nil
}

// Get validates and returns a session, refreshing its last-use position.
// Expired sessions are removed on access.
func (s *SessionStore) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	session := elem.Value.(*Session)
	if s.now().Sub(session.CreatedAt) > s.ttl {
		s.removeLocked(elem)
		return nil, false
	}
	session.LastUsedAt = s.now()
	s.order.MoveToFront(elem)
	copy := *session
	return &copy, true
}

// Delete removes a session, as on logout.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.byID[id]; ok {
		s.removeLocked(elem)
	}
}

// DeleteForIdentity removes every session owned by the identity.
func (s *SessionStore) DeleteForIdentity(identityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*Session).IdentityID == identityID {
			s.removeLocked(elem)
		}
		elem = next
	}
}

// Sweep drops expired sessions. Called periodically from the main loop.
func (s *SessionStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if now.Sub(elem.Value.(*Session).CreatedAt) > s.ttl {
			s.removeLocked(elem)
		}
		elem = next
	}
}

// Len returns the number of live sessions, expired entries included until
// swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *SessionStore) evictLRULocked() {
	if back := s.order.Back(); back != nil {
		session := back.Value.(*Session)
		s.log.Debug().Str("id", session.ID).Msg("evicting least-recently-used session")
		s.removeLocked(back)
	}
}

func (s *SessionStore) removeLocked(elem *list.Element) {
	session := s.order.Remove(elem).(*Session)
	delete(s.byID, session.ID)
}
