package engine

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxBodyBytes bounds request bodies; the device cannot afford to buffer
// more, and no platform endpoint needs it.
const maxBodyBytes = 16 * 1024

// Request is the parsed request envelope handed to handlers.
type Request struct {
	Method     Method
	Path       string
	Header     http.Header
	Query      url.Values
	Form       url.Values
	PathParams map[string]string
	RemoteAddr string
	TLS        bool

	// Auth is populated by the authenticator before the handler runs.
	Auth AuthContext

	body     []byte
	jsonBody map[string]json.RawMessage
}

// ParseRequest builds the envelope from an incoming http.Request.
func ParseRequest(r *http.Request) *Request {
	req := &Request{
		Method:     Method(r.Method),
		Path:       NormalizePath(r.URL.Path),
		Header:     r.Header,
		Query:      r.URL.Query(),
		Form:       url.Values{},
		RemoteAddr: r.RemoteAddr,
		TLS:        r.TLS != nil,
	}

	if r.Body != nil {
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
			r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err == nil {
				req.Form = r.PostForm
			}
		case strings.HasPrefix(ct, "application/json"):
			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err == nil {
				req.body = body
			}
		}
	}
	return req
}

// NormalizePath strips trailing slashes except for the root path.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// Param returns a request parameter by name, checking path parameters,
// query parameters, then form fields.
func (r *Request) Param(name string) string {
	if v, ok := r.PathParams[name]; ok {
		return v
	}
	if v := r.Query.Get(name); v != "" {
		return v
	}
	return r.Form.Get(name)
}

// JSONParam returns a top-level string field from a JSON body, or "".
func (r *Request) JSONParam(name string) string {
	if r.jsonBody == nil {
		if len(r.body) == 0 {
			return ""
		}
		if err := json.Unmarshal(r.body, &r.jsonBody); err != nil {
			return ""
		}
	}
	raw, ok := r.jsonBody[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// DecodeJSON unmarshals the JSON body into v.
func (r *Request) DecodeJSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// HasJSONBody reports whether a JSON body was received.
func (r *Request) HasJSONBody() bool {
	return len(r.body) > 0
}

// Cookie returns the named cookie value, or "".
func (r *Request) Cookie(name string) string {
	header := r.Header.Get("Cookie")
	if header == "" {
		return ""
	}
	for _, part := range strings.Split(header, ";") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && k == name {
			return v
		}
	}
	return ""
}

// BearerToken extracts an API token from the Authorization header, falling
// back to the access_token query parameter for constrained clients. Both
// forms are equally privileged.
func (r *Request) BearerToken() string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return r.Query.Get("access_token")
}

// ClientIP returns the remote IP without the port.
func (r *Request) ClientIP() string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsStateChanging reports whether the method can mutate state. Such
// requests are subject to the CSRF admission rule.
func (r *Request) IsStateChanging() bool {
	switch r.Method {
	case POST, PUT, PATCH, DELETE:
		return true
	}
	return false
}

// WantsJSON reports whether the client is API-style rather than a browser.
// Used to pick 403 over 401 and JSON bodies over HTML error pages.
func (r *Request) WantsJSON() bool {
	if strings.HasPrefix(r.Path, "/api/") || r.Path == "/api" {
		return true
	}
	if r.Header.Get("Authorization") != "" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
