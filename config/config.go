// Package config loads the platform configuration knobs from a YAML file,
// environment variables with a BEACON_ prefix, and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the platform exposes. Zero values never reach
// the platform: Load fills in defaults before returning.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Network NetworkConfig `mapstructure:"network"`
	Storage StorageConfig `mapstructure:"storage"`
}

type DeviceConfig struct {
	// Name is used for the mDNS hostname, the AP SSID prefix, and the
	// {{DEVICE_NAME}} template slot.
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	HTTPPort     int  `mapstructure:"http_port"`
	HTTPSEnabled bool `mapstructure:"https_enabled"`
	HTTPSPort    int  `mapstructure:"https_port"`
	// ForceHTTPS 301-redirects every HTTP request to the HTTPS listener.
	ForceHTTPS bool `mapstructure:"force_https"`
}

type AuthConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionCapacity int           `mapstructure:"session_capacity"`
	TokenCapacity   int           `mapstructure:"token_capacity"`
	PageTokenTTL    time.Duration `mapstructure:"page_token_ttl"`
}

type NetworkConfig struct {
	// APSuffix is appended to the device name to form the setup SSID.
	APSuffix string `mapstructure:"ap_suffix"`
	APIP     string `mapstructure:"ap_ip"`
	// ConnectRetries bounds station association attempts before the
	// controller falls back to the captive portal.
	ConnectRetries int           `mapstructure:"connect_retries"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	RestartDelay   time.Duration `mapstructure:"restart_delay"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Device: DeviceConfig{
			Name:    "Beacon",
			Version: "dev",
		},
		Server: ServerConfig{
			HTTPPort:     80,
			HTTPSEnabled: false,
			HTTPSPort:    443,
			ForceHTTPS:   false,
		},
		Auth: AuthConfig{
			SessionTTL:      24 * time.Hour,
			SessionCapacity: 16,
			TokenCapacity:   32,
			PageTokenTTL:    10 * time.Minute,
		},
		Network: NetworkConfig{
			APSuffix:       "Setup",
			APIP:           "192.168.4.1",
			ConnectRetries: 5,
			ConnectTimeout: 15 * time.Second,
			RestartDelay:   3 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
	}
}

// Load reads configuration from the given file (optional) plus BEACON_*
// environment variables, layered over Defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("device.name", d.Device.Name)
	v.SetDefault("device.version", d.Device.Version)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.https_enabled", d.Server.HTTPSEnabled)
	v.SetDefault("server.https_port", d.Server.HTTPSPort)
	v.SetDefault("server.force_https", d.Server.ForceHTTPS)
	v.SetDefault("auth.session_ttl", d.Auth.SessionTTL)
	v.SetDefault("auth.session_capacity", d.Auth.SessionCapacity)
	v.SetDefault("auth.token_capacity", d.Auth.TokenCapacity)
	v.SetDefault("auth.page_token_ttl", d.Auth.PageTokenTTL)
	v.SetDefault("network.ap_suffix", d.Network.APSuffix)
	v.SetDefault("network.ap_ip", d.Network.APIP)
	v.SetDefault("network.connect_retries", d.Network.ConnectRetries)
	v.SetDefault("network.connect_timeout", d.Network.ConnectTimeout)
	v.SetDefault("network.restart_delay", d.Network.RestartDelay)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
}

// Validate rejects configurations the platform cannot run with.
func (c Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("device.name must not be empty")
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", c.Server.HTTPPort)
	}
	if c.Server.HTTPSEnabled && (c.Server.HTTPSPort <= 0 || c.Server.HTTPSPort > 65535) {
		return fmt.Errorf("server.https_port %d out of range", c.Server.HTTPSPort)
	}
	if c.Server.ForceHTTPS && !c.Server.HTTPSEnabled {
		return fmt.Errorf("server.force_https requires server.https_enabled")
	}
	if c.Auth.SessionCapacity <= 0 {
		return fmt.Errorf("auth.session_capacity must be positive")
	}
	if c.Auth.TokenCapacity <= 0 {
		return fmt.Errorf("auth.token_capacity must be positive")
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.PageTokenTTL <= 0 {
		return fmt.Errorf("auth TTLs must be positive")
	}
	if c.Network.ConnectRetries <= 0 {
		return fmt.Errorf("network.connect_retries must be positive")
	}
	return nil
}

// APSSID returns the captive-portal SSID for the configured device name.
func (c Config) APSSID() string {
	return c.Device.Name + c.Network.APSuffix
}
