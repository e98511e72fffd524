package wifi

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrisk/beacon/creds"
)

func testConfig() ControllerConfig {
	return ControllerConfig{
		APSSID:         "BeaconSetup",
		APIP:           "192.168.4.1",
		ConnectRetries: 3,
		ConnectTimeout: time.Second,
	}
}

func newTestController(t *testing.T, radio *SimRadio, configured bool) *Controller {
	t.Helper()
	store := creds.New(creds.NewMemRegion(), zerolog.Nop())
	if configured {
		_, err := store.Save("HomeNet", "s3cret")
		require.NoError(t, err)
	}
	return NewController(radio, store, testConfig(), zerolog.Nop())
}

func TestBootUnprovisionedRaisesPortal(t *testing.T) {
	radio := NewSimRadio()
	c := newTestController(t, radio, false)

	state, err := c.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCaptivePortal, state)
	assert.Equal(t, "BeaconSetup", radio.APSSID())
	assert.Equal(t, "192.168.4.1", radio.APIP())
	assert.Equal(t, "192.168.4.1", c.IP())
	assert.Empty(t, c.SSID())
}

func TestBootProvisionedConnects(t *testing.T) {
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -55, Encrypted: true}, "s3cret")
	c := newTestController(t, radio, true)

	state, err := c.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateConnected, state)
	assert.Equal(t, "HomeNet", c.SSID())
	assert.Equal(t, "192.168.1.42", c.IP())
	assert.Equal(t, -55, c.RSSI())
}

func TestBoundedRetriesFallBackToPortal(t *testing.T) {
	// The seeded network has a different password, so every attempt
	// fails and the retry budget runs out.
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -55, Encrypted: true}, "changed")
	c := newTestController(t, radio, true)

	state, err := c.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCaptivePortal, state)
	assert.Equal(t, 3, c.failures)
}

func TestLinkLossReconnects(t *testing.T) {
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -60, Encrypted: true}, "s3cret")
	c := newTestController(t, radio, true)

	state, err := c.Begin(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateConnected, state)

	radio.DropLink()
	state = c.CheckLink(context.Background())
	assert.Equal(t, StateConnected, state, "recovered on reconnect")
	assert.Equal(t, 0, c.failures, "failure count resets on success")
}

func TestLinkLossExhaustsBudgetThenPortal(t *testing.T) {
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -60, Encrypted: true}, "s3cret")
	c := newTestController(t, radio, true)

	state, err := c.Begin(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateConnected, state)

	// Router password changed while we were associated.
	radio.DropLink()
	radio.passwords["HomeNet"] = "rotated"

	state = c.CheckLink(context.Background())
	assert.Equal(t, StateCaptivePortal, state)
}

func TestCheckLinkNoopWhileHealthy(t *testing.T) {
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -60, Encrypted: true}, "s3cret")
	c := newTestController(t, radio, true)

	_, err := c.Begin(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateConnected, c.CheckLink(context.Background()))
	assert.Equal(t, StateConnected, c.State())
}

func TestScanFromPortalRestoresAPMode(t *testing.T) {
	radio := NewSimRadio()
	radio.AddNetwork(Network{SSID: "HomeNet", RSSI: -55, Encrypted: true}, "x")
	radio.AddNetwork(Network{SSID: "CoffeeShop", RSSI: -80, Encrypted: false}, "")
	c := newTestController(t, radio, false)

	_, err := c.Begin(context.Background())
	require.NoError(t, err)

	networks, err := c.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 2)
	assert.Equal(t, "HomeNet", networks[0].SSID)

	assert.Equal(t, ModeAP, radio.Mode(), "AP-only restored after scan")
	assert.Equal(t, "192.168.4.1", radio.APIP(), "portal still reachable")
}

func TestBeginHonorsContext(t *testing.T) {
	radio := NewSimRadio()
	c := newTestController(t, radio, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
