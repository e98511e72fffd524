package engine

import (
	"fmt"
	"net/http"
)

// writeError fills the response with the platform error shape: JSON for
// API-style clients, an HTML error page for browsers.
func (e *Engine) writeError(req *Request, res *Response, status int, code, message string) {
	if req.WantsJSON() {
		res.Error(status, code, message)
		return
	}
	res.Status = status
	res.HTML(e.errorPage(status))
}

func (e *Engine) errorPage(status int) string {
	e.mu.RLock()
	custom, ok := e.errorPages[status]
	e.mu.RUnlock()
	if ok {
		return custom
	}
	return defaultErrorPage(status)
}

// defaultErrorPage renders the built-in error page for a status code.
// The body carries the {{DEVICE_NAME}} slot so expansion brands it.
func defaultErrorPage(status int) string {
	title, desc := errorText(status)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s - {{DEVICE_NAME}}</title>
</head>
<body>
  <div class="error-page">
    <h1>%d</h1>
    <h2>%s</h2>
    <p>%s</p>
    <a href="/">Back to home</a>
  </div>
</body>
</html>`, title, status, title, desc)
}

func errorText(status int) (title, desc string) {
	switch status {
	case http.StatusBadRequest:
		return "400 Bad Request", "The request could not be understood by the device."
	case http.StatusUnauthorized:
		return "401 Unauthorized", "Authentication is required to access this resource."
	case http.StatusForbidden:
		return "403 Forbidden", "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "404 Not Found", "The requested page does not exist on this device."
	case http.StatusMethodNotAllowed:
		return "405 Method Not Allowed", "The requested method is not supported for this resource."
	case http.StatusConflict:
		return "409 Conflict", "The request conflicts with the current state of the device."
	case http.StatusInternalServerError:
		return "500 Internal Error", "The device encountered an unexpected condition."
	default:
		return fmt.Sprintf("%d Error", status), "The request could not be completed."
	}
}
