package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/internal/util"
	"github.com/ferrisk/beacon/storage"
)

const (
	tokensCollection = "api_tokens"
	tokenPrefix      = "tok_"
	tokenBytes       = 16 // tok_<32 hex>
)

// APIToken is the stored record for a bearer token. The raw material is
// shown exactly once at creation; only its SHA-256 survives.
type APIToken struct {
	ID          string    `json:"id"`
	IdentityID  string    `json:"identity_id"`
	Description string    `json:"description"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// TokenStore persists API tokens across restarts.
type TokenStore struct {
	store    storage.Store
	capacity int
	log      zerolog.Logger
}

// NewTokenStore creates a token store holding at most capacity tokens.
func NewTokenStore(store storage.Store, capacity int, log zerolog.Logger) *TokenStore {
	return &TokenStore{
		store:    store,
		capacity: capacity,
		log:      log.With().Str("component", "tokens").Logger(),
	}
}

// Create mints a token owned by the identity and returns the record plus
// the raw token material. The raw value cannot be recovered afterwards.
func (s *TokenStore) Create(identityID, description string) (*APIToken, string, error) {
	ids, err := s.store.List(tokensCollection)
	if err != nil {
		return nil, "", fmt.Errorf("listing tokens: %w", err)
	}
	if len(ids) >= s.capacity {
		return nil, "", ErrCapacity
	}

	material, err := util.RandomHex(tokenBytes)
	if err != nil {
		return nil, "", fmt.Errorf("generating token: %w", err)
	}
	raw := tokenPrefix + material

	token := &APIToken{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		Description: description,
		Hash:        hashToken(raw),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.put(token); err != nil {
		return nil, "", err
	}
	s.log.Info().Str("id", token.ID).Str("identity", identityID).Msg("api token created")
	return token, raw, nil
}

// Validate resolves raw token material to its record. The hash comparison
// is constant time in the compared secret.
func (s *TokenStore) Validate(raw string) (*APIToken, error) {
	if !strings.HasPrefix(raw, tokenPrefix) {
		return nil, ErrInvalidCredentials
	}
	hash := []byte(hashToken(raw))
	defer memguard.WipeBytes(hash)

	var found *APIToken
	err := s.store.ForEach(tokensCollection, func(_ string, value []byte) bool {
		var token APIToken
		if json.Unmarshal(value, &token) != nil {
			return true
		}
		if subtle.ConstantTimeCompare(hash, []byte(token.Hash)) == 1 {
			found = &token
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrInvalidCredentials
	}

	found.LastUsedAt = time.Now().UTC()
	if err := s.put(found); err != nil {
		s.log.Warn().Err(err).Str("id", found.ID).Msg("failed to record token use")
	}
	return found, nil
}

// Get returns a token record by id.
func (s *TokenStore) Get(id string) (*APIToken, error) {
	data, err := s.store.Get(tokensCollection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var token APIToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return &token, nil
}

// ListForIdentity returns the tokens owned by an identity.
func (s *TokenStore) ListForIdentity(identityID string) ([]*APIToken, error) {
	var tokens []*APIToken
	err := s.store.ForEach(tokensCollection, func(_ string, value []byte) bool {
		var token APIToken
		if json.Unmarshal(value, &token) == nil && token.IdentityID == identityID {
			tokens = append(tokens, &token)
		}
		return true
	})
	return tokens, err
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(id string) error {
	if err := s.store.Delete(tokensCollection, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info().Str("id", id).Msg("api token revoked")
	return nil
}

// RevokeForIdentity deletes every token owned by the identity, as when the
// identity itself is removed.
func (s *TokenStore) RevokeForIdentity(identityID string) error {
	tokens, err := s.ListForIdentity(identityID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := s.Revoke(token.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TokenStore) put(token *APIToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := s.store.Put(tokensCollection, token.ID, data); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

