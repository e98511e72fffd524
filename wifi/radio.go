// Package wifi drives the device's network lifecycle: the station/portal
// state machine, the network scanner, the captive-portal DNS responder,
// and the delayed restart scheduler.
package wifi

import (
	"context"
	"errors"
)

// RadioMode selects which interfaces the radio runs.
type RadioMode int

const (
	ModeOff RadioMode = iota
	ModeStation
	ModeAP
	// ModeMixed runs AP and station together. Used only while scanning
	// from the portal.
	ModeMixed
)

func (m RadioMode) String() string {
	switch m {
	case ModeStation:
		return "station"
	case ModeAP:
		return "ap"
	case ModeMixed:
		return "ap+station"
	default:
		return "off"
	}
}

// Network is one scan result.
type Network struct {
	SSID      string `json:"ssid"`
	RSSI      int    `json:"rssi"`
	Encrypted bool   `json:"encrypted"`
}

// ErrAssociationFailed reports that the radio could not join the network.
var ErrAssociationFailed = errors.New("wifi: association failed")

// Radio abstracts the wireless hardware. Implementations are not expected
// to be safe for concurrent use; the controller serializes access.
type Radio interface {
	// SetMode reconfigures the radio interfaces. Switching away from
	// station mode drops any association.
	SetMode(mode RadioMode) error

	// Connect associates with the network and waits for an address.
	// It returns ErrAssociationFailed when the attempt times out or the
	// access point refuses the credentials.
	Connect(ctx context.Context, ssid, psk string) error

	// Connected reports whether the station link is up right now.
	Connected() bool

	// StationIP returns the station address, or "" when not connected.
	StationIP() string

	// RSSI returns the current link signal strength in dBm, 0 when not
	// connected.
	RSSI() int

	// StartAP raises an open access point with the given SSID and ip.
	StartAP(ssid, ip string) error

	// APIP returns the access point address, or "" when no AP is up.
	APIP() string

	// Scan performs a blocking survey of nearby networks. Results are
	// raw: unordered, possibly duplicated, hidden networks included as
	// empty SSIDs.
	Scan(ctx context.Context) ([]Network, error)
}
