package wifi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNetworksOrdering(t *testing.T) {
	got := FilterNetworks([]Network{
		{SSID: "CoffeeShop", RSSI: -80},
		{SSID: "HomeNet", RSSI: -55, Encrypted: true},
		{SSID: "Office", RSSI: -62, Encrypted: true},
	})
	assert.Equal(t, []Network{
		{SSID: "HomeNet", RSSI: -55, Encrypted: true},
		{SSID: "Office", RSSI: -62, Encrypted: true},
		{SSID: "CoffeeShop", RSSI: -80},
	}, got)
}

func TestFilterNetworksDedupeKeepsStrongest(t *testing.T) {
	got := FilterNetworks([]Network{
		{SSID: "HomeNet", RSSI: -70, Encrypted: true},
		{SSID: "HomeNet", RSSI: -55, Encrypted: true},
		{SSID: "HomeNet", RSSI: -88, Encrypted: true},
	})
	assert.Equal(t, []Network{{SSID: "HomeNet", RSSI: -55, Encrypted: true}}, got)
}

func TestFilterNetworksDropsHidden(t *testing.T) {
	got := FilterNetworks([]Network{
		{SSID: "", RSSI: -40},
		{SSID: "Visible", RSSI: -75},
	})
	assert.Equal(t, []Network{{SSID: "Visible", RSSI: -75}}, got)
}

func TestFilterNetworksEmpty(t *testing.T) {
	assert.Empty(t, FilterNetworks(nil))
}
