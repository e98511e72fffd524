package creds

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeTests runs the common suite against a Store over any Region.
func storeTests(t *testing.T, newStore func(t *testing.T) *Store) {
	t.Helper()

	t.Run("LoadUnconfigured", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Load()
		assert.ErrorIs(t, err, ErrNotConfigured)
		assert.False(t, s.Configured())
	})

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		s := newStore(t)
		truncated, err := s.Save("HomeWifi", "s3cret")
		require.NoError(t, err)
		assert.False(t, truncated)

		ssid, psk, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, "HomeWifi", ssid)
		assert.Equal(t, "s3cret", psk)
		assert.True(t, s.Configured())
	})

	t.Run("ClearDropsRecord", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save("HomeWifi", "s3cret")
		require.NoError(t, err)
		require.NoError(t, s.Clear())

		_, _, err = s.Load()
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("MaxWidthFields", func(t *testing.T) {
		s := newStore(t)
		ssid := strings.Repeat("a", FieldWidth)
		psk := strings.Repeat("b", FieldWidth)
		truncated, err := s.Save(ssid, psk)
		require.NoError(t, err)
		assert.False(t, truncated)

		gotSSID, gotPSK, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, ssid, gotSSID)
		assert.Equal(t, psk, gotPSK)
	})

	t.Run("TruncationReported", func(t *testing.T) {
		s := newStore(t)
		truncated, err := s.Save(strings.Repeat("a", FieldWidth+5), "short")
		require.NoError(t, err)
		assert.True(t, truncated)

		ssid, _, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", FieldWidth), ssid)
	})

	t.Run("Resave", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save("OldNet", "oldpass")
		require.NoError(t, err)
		_, err = s.Save("NewNet", "newpass")
		require.NoError(t, err)

		ssid, psk, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, "NewNet", ssid)
		assert.Equal(t, "newpass", psk)
	})
}

func TestMemRegionStore(t *testing.T) {
	storeTests(t, func(t *testing.T) *Store {
		return New(NewMemRegion(), zerolog.Nop())
	})
}

func TestFileRegionStore(t *testing.T) {
	storeTests(t, func(t *testing.T) *Store {
		region, err := OpenFileRegion(filepath.Join(t.TempDir(), "wifi.bin"))
		require.NoError(t, err)
		t.Cleanup(func() { region.Close() })
		return New(region, zerolog.Nop())
	})
}

func TestFileRegionPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.bin")

	region, err := OpenFileRegion(path)
	require.NoError(t, err)
	s := New(region, zerolog.Nop())
	_, err = s.Save("HomeWifi", "s3cret")
	require.NoError(t, err)
	require.NoError(t, region.Close())

	// Reopen, as a reboot would.
	region, err = OpenFileRegion(path)
	require.NoError(t, err)
	defer region.Close()

	ssid, psk, err := New(region, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, "HomeWifi", ssid)
	assert.Equal(t, "s3cret", psk)
}

func TestRegionBounds(t *testing.T) {
	m := NewMemRegion()
	assert.Error(t, m.ReadAt(RegionSize, make([]byte, 1)))
	assert.Error(t, m.WriteAt(-1, make([]byte, 1)))
	assert.Error(t, m.WriteAt(RegionSize-1, make([]byte, 2)))
}
