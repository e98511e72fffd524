package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTokenOneShot(t *testing.T) {
	s := NewPageTokenStore(10*time.Minute, zerolog.Nop())

	value, err := s.Issue("session-1")
	require.NoError(t, err)
	assert.Len(t, value, 64)

	assert.True(t, s.Consume(value, "session-1"))
	assert.False(t, s.Consume(value, "session-1"), "second use rejected")
}

func TestPageTokenSessionBinding(t *testing.T) {
	s := NewPageTokenStore(10*time.Minute, zerolog.Nop())

	value, err := s.Issue("session-1")
	require.NoError(t, err)

	assert.False(t, s.Consume(value, "session-2"), "wrong session rejected")
	assert.True(t, s.Consume(value, "session-1"), "binding failure does not consume")
}

func TestPageTokenWindowExpiry(t *testing.T) {
	s := NewPageTokenStore(10*time.Minute, zerolog.Nop())
	now := time.Now()
	s.now = func() time.Time { return now }

	value, err := s.Issue("session-1")
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	assert.False(t, s.Consume(value, "session-1"))
}

func TestPageTokenUnknownValue(t *testing.T) {
	s := NewPageTokenStore(10*time.Minute, zerolog.Nop())
	assert.False(t, s.Consume("", "session-1"))
	assert.False(t, s.Consume("not-a-token", "session-1"))
}

func TestPageTokenBoundedIssuance(t *testing.T) {
	s := NewPageTokenStore(10*time.Minute, zerolog.Nop())

	first, err := s.Issue("session-1")
	require.NoError(t, err)

	var last string
	for i := 0; i < maxPageTokens; i++ {
		last, err = s.Issue("session-1")
		require.NoError(t, err)
	}

	assert.Equal(t, maxPageTokens, s.Outstanding())
	assert.False(t, s.Consume(first, "session-1"), "oldest token evicted")
	assert.True(t, s.Consume(last, "session-1"))
}

func TestPageTokenSweep(t *testing.T) {
	s := NewPageTokenStore(time.Minute, zerolog.Nop())
	now := time.Now()
	s.now = func() time.Time { return now }

	stale, err := s.Issue("session-1")
	require.NoError(t, err)
	used, err := s.Issue("session-1")
	require.NoError(t, err)
	require.True(t, s.Consume(used, "session-1"))

	now = now.Add(30 * time.Second)
	fresh, err := s.Issue("session-1")
	require.NoError(t, err)
	now = now.Add(45 * time.Second)

	s.Sweep()

	assert.Equal(t, 1, s.Outstanding())
	assert.True(t, s.Consume(fresh, "session-1"))
	assert.False(t, s.Consume(stale, "session-1"))
}
