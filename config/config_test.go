package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Beacon", cfg.Device.Name)
	assert.Equal(t, 80, cfg.Server.HTTPPort)
	assert.False(t, cfg.Server.HTTPSEnabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 16, cfg.Auth.SessionCapacity)
	assert.Equal(t, 32, cfg.Auth.TokenCapacity)
	assert.Equal(t, 10*time.Minute, cfg.Auth.PageTokenTTL)
	assert.Equal(t, "Setup", cfg.Network.APSuffix)
	assert.Equal(t, "192.168.4.1", cfg.Network.APIP)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  name: Thermostat
server:
  https_enabled: true
  https_port: 8443
auth:
  session_ttl: 2h
  session_capacity: 4
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Thermostat", cfg.Device.Name)
	assert.True(t, cfg.Server.HTTPSEnabled)
	assert.Equal(t, 8443, cfg.Server.HTTPSPort)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 4, cfg.Auth.SessionCapacity)
	// Untouched knobs keep their defaults.
	assert.Equal(t, 80, cfg.Server.HTTPPort)
	assert.Equal(t, 32, cfg.Auth.TokenCapacity)
}

func TestAPSSID(t *testing.T) {
	cfg := Defaults()
	cfg.Device.Name = "MyDevice"
	assert.Equal(t, "MyDeviceSetup", cfg.APSSID())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyDeviceName", func(c *Config) { c.Device.Name = "" }},
		{"BadHTTPPort", func(c *Config) { c.Server.HTTPPort = 0 }},
		{"BadHTTPSPort", func(c *Config) { c.Server.HTTPSEnabled = true; c.Server.HTTPSPort = -1 }},
		{"ForceHTTPSWithoutHTTPS", func(c *Config) { c.Server.ForceHTTPS = true }},
		{"ZeroSessionCapacity", func(c *Config) { c.Auth.SessionCapacity = 0 }},
		{"ZeroTokenCapacity", func(c *Config) { c.Auth.TokenCapacity = 0 }},
		{"NegativeSessionTTL", func(c *Config) { c.Auth.SessionTTL = -time.Hour }},
		{"ZeroRetries", func(c *Config) { c.Network.ConnectRetries = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
