package auth

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrisk/beacon/storage/memory"
)

func newIdentityStore(t *testing.T) *IdentityStore {
	t.Helper()
	return NewIdentityStore(memory.NewStore(), zerolog.Nop())
}

func TestSetupCreatesAdmin(t *testing.T) {
	s := newIdentityStore(t)
	assert.False(t, s.HasAdmin())

	admin, err := s.Setup("hunter2hunter2")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "admin", admin.Username)
	assert.NotEmpty(t, admin.ID)
	assert.True(t, s.HasAdmin())

	// Second setup is refused.
	_, err = s.Setup("other")
	assert.ErrorIs(t, err, ErrSetupDone)
}

func TestAuthenticate(t *testing.T) {
	s := newIdentityStore(t)
	_, err := s.Setup("hunter2hunter2")
	require.NoError(t, err)

	identity, err := s.Authenticate("admin", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "admin", identity.Username)

	_, err = s.Authenticate("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("ghost", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUsernameNormalization(t *testing.T) {
	s := newIdentityStore(t)
	_, err := s.Create("Alice", "password1")
	require.NoError(t, err)

	// Case variants are the same account.
	_, err = s.Create("ALICE", "password2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	identity, err := s.FindByUsername("aLiCe")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)

	got, err := s.Authenticate("ALICE", "password1")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)
}

func TestLastAdminProtected(t *testing.T) {
	s := newIdentityStore(t)
	admin, err := s.Setup("hunter2hunter2")
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(admin.ID), ErrLastAdmin)

	// Non-admin users delete fine.
	user, err := s.Create("bob", "bobpassword")
	require.NoError(t, err)
	assert.NoError(t, s.Delete(user.ID))

	// The admin is still protected.
	assert.ErrorIs(t, s.Delete(admin.ID), ErrLastAdmin)
}

func TestSetPassword(t *testing.T) {
	s := newIdentityStore(t)
	admin, err := s.Setup("originalpass")
	require.NoError(t, err)

	require.NoError(t, s.SetPassword(admin.ID, "replacement"))

	_, err = s.Authenticate("admin", "originalpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate("admin", "replacement")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.SetPassword("no-such-id", "x"), ErrNotFound)
}

func TestListAndGet(t *testing.T) {
	s := newIdentityStore(t)
	_, err := s.Setup("hunter2hunter2")
	require.NoError(t, err)
	_, err = s.Create("bob", "bobpassword")
	require.NoError(t, err)

	identities, err := s.List()
	require.NoError(t, err)
	assert.Len(t, identities, 2)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyInputsRejected(t *testing.T) {
	s := newIdentityStore(t)
	_, err := s.Create("", "password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Create("user", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Setup("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
