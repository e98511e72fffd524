package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/secure/precis"

	"github.com/ferrisk/beacon/internal/util"
	"github.com/ferrisk/beacon/storage"
)

const usersCollection = "users"

// Identity is one user of the device: the administrator or an additional
// named account.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// IdentityStore persists identities and enforces the single-admin
// invariant: after initial setup at least one admin always exists.
type IdentityStore struct {
	store storage.Store
	log   zerolog.Logger
}

// NewIdentityStore creates an identity store over the given backing store.
func NewIdentityStore(store storage.Store, log zerolog.Logger) *IdentityStore {
	return &IdentityStore{
		store: store,
		log:   log.With().Str("component", "identities").Logger(),
	}
}

// normalizeUsername applies the PRECIS UsernameCaseMapped profile, so
// "Admin" and "admin" are the same account.
func normalizeUsername(username string) (string, error) {
	normalized, err := precis.UsernameCaseMapped.String(username)
	if err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}
	return normalized, nil
}

// Setup creates the initial admin identity. Refused once any admin exists.
func (s *IdentityStore) Setup(password string) (*Identity, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	if s.HasAdmin() {
		return nil, ErrSetupDone
	}
	identity, err := s.create("admin", password, true)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("id", identity.ID).Msg("initial admin created")
	return identity, nil
}

// Create adds a non-admin identity with a unique username.
func (s *IdentityStore) Create(username, password string) (*Identity, error) {
	return s.create(username, password, false)
}

func (s *IdentityStore) create(username, password string, isAdmin bool) (*Identity, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrInvalidCredentials)
	}
	normalized, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if existing, _ := s.FindByUsername(normalized); existing != nil {
		return nil, ErrDuplicateUsername
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	identity := &Identity{
		ID:           uuid.NewString(),
		Username:     normalized,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.put(identity); err != nil {
		return nil, err
	}
	s.log.Info().Str("id", identity.ID).Str("username", normalized).Bool("admin", isAdmin).Msg("identity created")
	return identity, nil
}

func (s *IdentityStore) put(identity *Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := s.store.Put(usersCollection, identity.ID, data); err != nil {
		return fmt.Errorf("storing identity: %w", err)
	}
	return nil
}

// Get returns an identity by id.
func (s *IdentityStore) Get(id string) (*Identity, error) {
	data, err := s.store.Get(usersCollection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("decoding identity: %w", err)
	}
	return &identity, nil
}

// FindByUsername returns the identity with the given (normalized) username.
func (s *IdentityStore) FindByUsername(username string) (*Identity, error) {
	normalized, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	var found *Identity
	err = s.store.ForEach(usersCollection, func(_ string, value []byte) bool {
		var identity Identity
		if json.Unmarshal(value, &identity) == nil && identity.Username == normalized {
			found = &identity
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// List returns every identity.
func (s *IdentityStore) List() ([]*Identity, error) {
	var identities []*Identity
	err := s.store.ForEach(usersCollection, func(_ string, value []byte) bool {
		var identity Identity
		if json.Unmarshal(value, &identity) == nil {
			identities = append(identities, &identity)
		}
		return true
	})
	return identities, err
}

// Authenticate verifies a username/password pair.
func (s *IdentityStore) Authenticate(username, password string) (*Identity, error) {
	identity, err := s.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := util.VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

// SetPassword replaces an identity's password hash.
func (s *IdentityStore) SetPassword(id, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", ErrInvalidCredentials)
	}
	identity, err := s.Get(id)
	if err != nil {
		return err
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	identity.PasswordHash = hash
	if err := s.put(identity); err != nil {
		return err
	}
	s.log.Info().Str("id", id).Msg("password changed")
	return nil
}

// Delete removes an identity. Deleting the last admin is refused.
func (s *IdentityStore) Delete(id string) error {
	identity, err := s.Get(id)
	if err != nil {
		return err
	}
	if identity.IsAdmin && s.adminCount() <= 1 {
		return ErrLastAdmin
	}
	if err := s.store.Delete(usersCollection, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info().Str("id", id).Str("username", identity.Username).Msg("identity deleted")
	return nil
}

// HasAdmin reports whether any admin identity exists. The setup endpoint
// stays open only while this is false.
func (s *IdentityStore) HasAdmin() bool {
	return s.adminCount() > 0
}

func (s *IdentityStore) adminCount() int {
	count := 0
	s.store.ForEach(usersCollection, func(_ string, value []byte) bool {
		var identity Identity
		if json.Unmarshal(value, &identity) == nil && identity.IsAdmin {
			count++
		}
		return true
	})
	return count
}
