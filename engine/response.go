package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the response envelope a handler fills in. The zero value is
// a 200 with an empty body.
type Response struct {
	Status      int
	Header      http.Header
	ContentType string

	body []byte
	// readOnly marks the body as a borrow of static program data (embedded
	// assets). The engine copies before mutating such bodies during
	// template expansion and never writes into them.
	readOnly bool
}

// NewResponse returns an empty response envelope.
func NewResponse() *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{},
	}
}

// HTML sets an HTML body. The body passes through template slot expansion
// before being written.
func (r *Response) HTML(body string) {
	r.body = []byte(body)
	r.readOnly = false
	r.ContentType = "text/html; charset=utf-8"
}

// JSON encodes v as the response body.
func (r *Response) JSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.Status = http.StatusInternalServerError
		r.body = []byte(`{"error":"internal","message":"response encoding failed"}`)
		r.ContentType = "application/json"
		return
	}
	r.body = data
	r.readOnly = false
	r.ContentType = "application/json"
}

// Static sets a zero-copy body borrowed from read-only program data. HTML
// content still receives slot expansion, on a copy.
func (r *Response) Static(content []byte, contentType string) {
	r.body = content
	r.readOnly = true
	r.ContentType = contentType
}

// Text sets a plain-text body.
func (r *Response) Text(body string) {
	r.body = []byte(body)
	r.readOnly = false
	r.ContentType = "text/plain; charset=utf-8"
}

// Redirect emits a redirect to location.
func (r *Response) Redirect(location string, status int) {
	if status < 300 || status > 399 {
		status = http.StatusFound
	}
	r.Status = status
	r.Header.Set("Location", location)
	r.body = nil
}

// Error writes the platform's JSON error shape.
func (r *Response) Error(status int, code, message string) {
	r.Status = status
	r.JSON(map[string]any{
		"error":   code,
		"message": message,
		"code":    status,
	})
}

// SetCookie appends a Set-Cookie header.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
}

// Body returns the current body bytes.
func (r *Response) Body() []byte {
	return r.body
}

// IsHTML reports whether the body is subject to template expansion.
func (r *Response) IsHTML() bool {
	return len(r.ContentType) >= 9 && r.ContentType[:9] == "text/html"
}

// setExpandedBody replaces the body after template expansion. The expanded
// copy is owned by the response.
func (r *Response) setExpandedBody(body []byte) {
	r.body = body
	r.readOnly = false
}

// write flushes the envelope to the wire. Partial writes are not retried.
func (r *Response) write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	if len(r.body) > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(r.body)))
	}
	if r.Status == 0 {
		r.Status = http.StatusOK
	}
	w.WriteHeader(r.Status)
	if len(r.body) > 0 {
		w.Write(r.body)
	}
}
