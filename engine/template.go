package engine

import (
	"bytes"
	"strings"
)

// Template slot markers recognized in HTML responses. The set is fixed:
// this is a flat one-pass substitution, not a templating language.
const (
	slotDeviceName     = "DEVICE_NAME"
	slotNavMenu        = "NAV_MENU"
	slotSecurityNotice = "SECURITY_NOTICE"
	slotNetworkSSID    = "NETWORK_SSID"
	slotCSRFToken      = "csrfToken"
)

const httpSecurityNotice = `<div class="security-notice warning">` +
	`This page is served over plain HTTP. Credentials you enter here are sent unencrypted; ` +
	`only proceed on a network you trust.</div>`

const httpsSecurityNotice = `<div class="security-notice secure">` +
	`Connection secured with TLS. Your browser may warn about the device's self-signed certificate.</div>`

// expandTemplates performs the single-pass slot substitution on an HTML
// body. Slot markers inside expansions are left alone: the scan consumes
// each replacement entirely before continuing.
func (e *Engine) expandTemplates(req *Request, res *Response) {
	body := res.Body()
	if !bytes.Contains(body, []byte("{{")) {
		return
	}

	var csrfToken string
	var out strings.Builder
	out.Grow(len(body) + 256)

	s := string(body)
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			out.WriteString(s)
			break
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			out.WriteString(s)
			break
		}
		end += start

		name := s[start+2 : end]
		value, known := e.slotValue(req, name, &csrfToken)
		if known {
			out.WriteString(s[:start])
			out.WriteString(value)
		} else {
			// Unknown marker stays literal.
			out.WriteString(s[:end+2])
		}
		s = s[end+2:]
	}

	res.setExpandedBody([]byte(out.String()))
}

func (e *Engine) slotValue(req *Request, name string, csrfToken *string) (string, bool) {
	switch name {
	case slotDeviceName:
		return e.deviceName, true
	case slotNetworkSSID:
		if e.ssidFn != nil {
			return e.ssidFn(), true
		}
		return "", true
	case slotSecurityNotice:
		if req.TLS {
			return httpsSecurityNotice, true
		}
		return httpSecurityNotice, true
	case slotNavMenu:
		return e.renderNav(req.Auth.Authenticated && req.Auth.Via != AuthNone), true
	case slotCSRFToken:
		// Page tokens are only minted for session-authenticated requests;
		// anyone else gets an empty slot.
		if e.auth == nil || req.Auth.SessionID == "" {
			return "", true
		}
		if *csrfToken == "" {
			token, err := e.auth.IssuePageToken(req.Auth.SessionID)
			if err != nil {
				e.log.Error().Err(err).Msg("page token issuance failed")
				return "", true
			}
			*csrfToken = token
		}
		return *csrfToken, true
	}
	return "", false
}

// renderNav produces the navigation markup for {{NAV_MENU}}, filtered by
// the request's authentication state.
func (e *Engine) renderNav(authenticated bool) string {
	e.mu.RLock()
	items := e.nav
	e.mu.RUnlock()

	if len(items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(50 + len(items)*80)
	sb.WriteString("<div class=\"nav-links\">\n")
	for _, item := range items {
		switch item.Visibility {
		case NavAuthenticatedOnly:
			if !authenticated {
				continue
			}
		case NavUnauthenticatedOnly:
			if authenticated {
				continue
			}
		}
		sb.WriteString("  <a href=\"")
		sb.WriteString(item.URL)
		sb.WriteString("\"")
		if item.Target != "" {
			sb.WriteString(" target=\"")
			sb.WriteString(item.Target)
			sb.WriteString("\"")
		}
		sb.WriteString(">")
		sb.WriteString(item.Name)
		sb.WriteString("</a>\n")
	}
	sb.WriteString("</div>\n")
	return sb.String()
}
