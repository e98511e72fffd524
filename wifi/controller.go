package wifi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/creds"
)

// State names the controller's position in the provisioning lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateCaptivePortal
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateCaptivePortal:
		return "captive_portal"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ControllerConfig tunes the state machine.
type ControllerConfig struct {
	// APSSID is the open access point name raised in portal mode.
	APSSID string
	// APIP is the portal address; the DNS responder resolves everything
	// to it.
	APIP string
	// ConnectRetries bounds total association failures before the
	// controller gives up and falls back to the portal.
	ConnectRetries int
	// ConnectTimeout bounds one association attempt.
	ConnectTimeout time.Duration
}

// Controller owns the radio and walks the provisioning state machine:
// Connecting when credentials exist, Connected on success, CaptivePortal
// when unprovisioned or after the retry budget is spent.
type Controller struct {
	radio Radio
	creds *creds.Store
	cfg   ControllerConfig
	log   zerolog.Logger

	mu       sync.Mutex
	state    State
	ssid     string
	failures int
}

// NewController wires the radio and credential store into a controller.
// The machine starts in StateIdle until Begin runs.
func NewController(radio Radio, store *creds.Store, cfg ControllerConfig, log zerolog.Logger) *Controller {
	return &Controller{
		radio: radio,
		creds: store,
		cfg:   cfg,
		log:   log.With().Str("component", "wifi").Logger(),
	}
}

// Begin determines the boot mode. With stored credentials it attempts the
// station connection inside the retry budget; otherwise, or when the
// budget is spent, it raises the portal.
func (c *Controller) Begin(ctx context.Context) (State, error) {
	ssid, psk, err := c.creds.Load()
	if errors.Is(err, creds.ErrNotConfigured) {
		c.log.Info().Msg("no stored credentials, raising portal")
		return c.enterPortal()
	}
	if err != nil {
		return StateFailed, err
	}

	if err := c.connect(ctx, ssid, psk); err != nil {
		if ctx.Err() != nil {
			return StateIdle, ctx.Err()
		}
		c.log.Warn().Str("ssid", ssid).Msg("station connection failed, raising portal")
		return c.enterPortal()
	}

	c.mu.Lock()
	c.state = StateConnected
	c.ssid = ssid
	c.mu.Unlock()
	c.log.Info().Str("ssid", ssid).Str("ip", c.radio.StationIP()).Msg("station connected")
	return StateConnected, nil
}

// connect spends the retry budget on association attempts. The failure
// count is cumulative across reconnects; it resets only on success.
func (c *Controller) connect(ctx context.Context, ssid, psk string) error {
	if err := c.radio.SetMode(ModeStation); err != nil {
		return err
	}
	for {
		c.mu.Lock()
		if c.failures >= c.cfg.ConnectRetries {
			c.mu.Unlock()
			return ErrAssociationFailed
		}
		c.state = StateConnecting
		c.mu.Unlock()

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		err := c.radio.Connect(attemptCtx, ssid, psk)
		cancel()
		if err == nil {
			c.mu.Lock()
			c.failures = 0
			c.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		c.failures++
		n := c.failures
		c.mu.Unlock()
		c.log.Warn().Err(err).Int("failures", n).Str("ssid", ssid).Msg("association attempt failed")
	}
}

func (c *Controller) enterPortal() (State, error) {
	if err := c.radio.SetMode(ModeAP); err != nil {
		c.setState(StateFailed)
		return StateFailed, err
	}
	if err := c.radio.StartAP(c.cfg.APSSID, c.cfg.APIP); err != nil {
		c.setState(StateFailed)
		return StateFailed, err
	}
	c.mu.Lock()
	c.state = StateCaptivePortal
	c.ssid = ""
	c.mu.Unlock()
	c.log.Info().Str("ap_ssid", c.cfg.APSSID).Str("ap_ip", c.cfg.APIP).Msg("captive portal up")
	return StateCaptivePortal, nil
}

// CheckLink is the periodic health probe driven from the main loop. On
// link loss it re-enters Connecting; when the cumulative retry budget is
// spent it falls back to the portal.
func (c *Controller) CheckLink(ctx context.Context) State {
	c.mu.Lock()
	state := c.state
	ssid := c.ssid
	c.mu.Unlock()

	if state != StateConnected || c.radio.Connected() {
		return state
	}

	c.log.Warn().Str("ssid", ssid).Msg("station link lost, reconnecting")
	storedSSID, psk, err := c.creds.Load()
	if err != nil {
		s, _ := c.enterPortal()
		return s
	}
	if err := c.connect(ctx, storedSSID, psk); err != nil {
		s, _ := c.enterPortal()
		return s
	}
	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()
	c.log.Info().Str("ssid", storedSSID).Msg("station link recovered")
	return StateConnected
}

// Scan surveys nearby networks and returns them filtered and ordered.
// From the portal the radio runs mixed mode for the duration of the scan
// and drops back to AP-only afterwards.
func (c *Controller) Scan(ctx context.Context) ([]Network, error) {
	c.mu.Lock()
	inPortal := c.state == StateCaptivePortal
	c.mu.Unlock()

	if inPortal {
		if err := c.radio.SetMode(ModeMixed); err != nil {
			return nil, err
		}
		defer func() {
			if err := c.radio.SetMode(ModeAP); err == nil {
				_ = c.radio.StartAP(c.cfg.APSSID, c.cfg.APIP)
			}
		}()
		// Mode switches drop the AP; callers expect it back immediately.
		if err := c.radio.StartAP(c.cfg.APSSID, c.cfg.APIP); err != nil {
			return nil, err
		}
	}

	raw, err := c.radio.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return FilterNetworks(raw), nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SSID returns the associated network name, or "" outside Connected.
func (c *Controller) SSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ""
	}
	return c.ssid
}

// IP returns the address clients should reach the device on in the
// current mode.
func (c *Controller) IP() string {
	switch c.State() {
	case StateConnected:
		return c.radio.StationIP()
	case StateCaptivePortal:
		return c.radio.APIP()
	}
	return ""
}

// RSSI returns the station signal strength, 0 outside Connected.
func (c *Controller) RSSI() int {
	if c.State() != StateConnected {
		return 0
	}
	return c.radio.RSSI()
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
