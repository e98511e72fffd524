package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/internal/util"
)

const (
	pageTokenBytes = 16
	// maxPageTokens bounds RAM spent on outstanding tokens; issuing past
	// the bound drops the oldest.
	maxPageTokens = 64
)

type pageToken struct {
	sessionID string
	issuedAt  time.Time
	used      bool
}

// PageTokenStore issues one-shot CSRF tokens bound to a session, valid for
// a bounded window and consumed on first use. Fully in RAM.
type PageTokenStore struct {
	mu     sync.Mutex
	window time.Duration
	tokens map[string]*pageToken
	order  []string // issuance order for bounded eviction
	now    func() time.Time
	log    zerolog.Logger
}

// NewPageTokenStore creates a store whose tokens are valid for window.
func NewPageTokenStore(window time.Duration, log zerolog.Logger) *PageTokenStore {
	return &PageTokenStore{
		window: window,
		tokens: make(map[string]*pageToken),
		now:    time.Now,
		log:    log.With().Str("component", "page_tokens").Logger(),
	}
}

// Issue mints a fresh token for the session.
func (s *PageTokenStore) Issue(sessionID string) (string, error) {
	value, err := util.RandomHex(pageTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating page token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.order) >= maxPageTokens {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.tokens, oldest)
	}
	s.tokens[value] = &pageToken{sessionID: sessionID, issuedAt: s.now()}
	s.order = append(s.order, value)
	return value, nil
}

// Consume atomically marks the token used. It succeeds at most once per
// token, and only for the session it was issued to, within the validity
// window. Unknown and already-consumed tokens are indistinguishable.
func (s *PageTokenStore) Consume(value, sessionID string) bool {
	if value == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[value]
	if !ok || token.used {
		return false
	}
	if token.sessionID != sessionID {
		return false
	}
	if s.now().Sub(token.issuedAt) > s.window {
		delete(s.tokens, value)
		return false
	}
	token.used = true
	return true
}

// Sweep drops expired and consumed tokens.
func (s *PageTokenStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	kept := s.order[:0]
	for _, value := range s.order {
		token := s.tokens[value]
		if token == nil {
			continue
		}
		if token.used || now.Sub(token.issuedAt) > s.window {
			delete(s.tokens, value)
			continue
		}
		kept = append(kept, value)
	}
	s.order = kept
}

// Outstanding returns the number of tracked tokens.
func (s *PageTokenStore) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
