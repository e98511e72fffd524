package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesEmbedAndCarrySlots(t *testing.T) {
	for page, slots := range map[string][]string{
		"portal.html":  {"{{DEVICE_NAME}}", "{{SECURITY_NOTICE}}"},
		"login.html":   {"{{DEVICE_NAME}}", "{{SECURITY_NOTICE}}"},
		"setup.html":   {"{{DEVICE_NAME}}"},
		"home.html":    {"{{DEVICE_NAME}}", "{{NAV_MENU}}", "{{NETWORK_SSID}}", "{{csrfToken}}"},
		"wifi.html":    {"{{DEVICE_NAME}}", "{{NAV_MENU}}", "{{NETWORK_SSID}}", "{{csrfToken}}"},
		"account.html": {"{{DEVICE_NAME}}", "{{NAV_MENU}}", "{{csrfToken}}"},
		"saved.html":   {"{{DEVICE_NAME}}"},
	} {
		body, err := Page(page)
		require.NoError(t, err, page)
		for _, slot := range slots {
			assert.Contains(t, string(body), slot, page)
		}
	}
}

func TestPageMiss(t *testing.T) {
	_, err := Page("nope.html")
	assert.Error(t, err)
}

func TestAssets(t *testing.T) {
	fsys, err := Assets()
	require.NoError(t, err)
	_, err = fsys.Open("style.css")
	assert.NoError(t, err)
}
