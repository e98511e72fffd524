package engine

import "net/http"

// Method is an HTTP method accepted by the route table.
type Method string

const (
	GET     Method = http.MethodGet
	POST    Method = http.MethodPost
	PUT     Method = http.MethodPut
	PATCH   Method = http.MethodPatch
	DELETE  Method = http.MethodDelete
	OPTIONS Method = http.MethodOptions
)

// Protocol is a bitmask of the listeners a route is reachable on.
type Protocol uint8

const (
	HTTP  Protocol = 1 << iota // plain listener
	HTTPS                      // TLS listener

	// AnyProtocol serves the route on both listeners, the default.
	AnyProtocol = HTTP | HTTPS
)

func (p Protocol) String() string {
	switch p {
	case HTTP:
		return "http"
	case HTTPS:
		return "https"
	case AnyProtocol:
		return "http+https"
	}
	return "none"
}

// AuthType identifies one authenticator in a route's requirement set.
type AuthType uint8

const (
	// AuthNone admits anonymously.
	AuthNone AuthType = iota
	// AuthLocalOnly admits requests originating on the local network.
	AuthLocalOnly
	// AuthSession admits a valid cookie session.
	AuthSession
	// AuthToken admits a valid bearer API token.
	AuthToken
	// AuthPageToken admits a one-shot CSRF token bound to a session.
	AuthPageToken
)

func (a AuthType) String() string {
	switch a {
	case AuthNone:
		return "none"
	case AuthLocalOnly:
		return "local_only"
	case AuthSession:
		return "session"
	case AuthToken:
		return "token"
	case AuthPageToken:
		return "page_token"
	}
	return "unknown"
}

// AuthRequirements is the set of authenticators that may admit a request.
// Admission is an OR across the set.
type AuthRequirements []AuthType

// Public is the requirement set for routes open to everyone.
var Public = AuthRequirements{AuthNone}

// Has reports whether the set contains t.
func (r AuthRequirements) Has(t AuthType) bool {
	for _, a := range r {
		if a == t {
			return true
		}
	}
	return false
}

// RequiresAuth reports whether the set demands any authentication at all.
func (r AuthRequirements) RequiresAuth() bool {
	return len(r) > 0 && !r.Has(AuthNone)
}

// AuthContext is the outcome of classification, carried on the request
// envelope into the handler.
type AuthContext struct {
	Authenticated bool
	Via           AuthType
	IdentityID    string
	Username      string
	IsAdmin       bool
	SessionID     string
	LocalNetwork  bool
}

// Authenticator is the policy provider the engine consults before invoking
// a handler. The auth pipeline implements it; tests substitute fakes.
type Authenticator interface {
	// Authenticate classifies the request against the requirement set.
	// A false return means no authenticator in the set succeeded.
	Authenticate(req *Request, requirements AuthRequirements) (AuthContext, bool)
	// IssuePageToken mints a one-shot CSRF token bound to the session,
	// for injection into rendered HTML.
	IssuePageToken(sessionID string) (string, error)
}

// HandlerFunc processes a request by filling in the response envelope.
type HandlerFunc func(req *Request, res *Response)

// Docs is an optional human-readable description attached to a route.
type Docs struct {
	Summary     string
	Description string
}

// Route is one entry in the dispatch table. Path points into the engine's
// string pool and stays valid for the life of the program once the table
// is finalized.
type Route struct {
	Path      *string
	Method    Method
	Protocols Protocol
	Auth      AuthRequirements
	Handler   HandlerFunc
	Docs      *Docs
}

// NavVisibility is a navigation item's visibility predicate.
type NavVisibility uint8

const (
	NavAlways NavVisibility = iota
	NavAuthenticatedOnly
	NavUnauthenticatedOnly
)

// NavItem is one entry of the injected navigation menu.
type NavItem struct {
	Name       string
	URL        string
	Target     string
	Visibility NavVisibility
}

// RedirectRule maps a source path to a destination, consulted before route
// matching; a hit emits a 301 without invoking any handler.
type RedirectRule struct {
	From string
	To   string
}

// ModuleRoute is a route descriptor contributed by a module, mounted
// relative to the module's base path.
type ModuleRoute struct {
	Subpath   string
	Method    Method
	Protocols Protocol
	Auth      AuthRequirements
	Handler   HandlerFunc
	Docs      *Docs
}

// Module is a pluggable collection of routes mounted under a base path.
type Module interface {
	Name() string
	Version() string
	Description() string
	Routes() []ModuleRoute
}

// Initializer is implemented by modules needing a startup hook.
type Initializer interface {
	Init() error
}

// Ticker is implemented by modules that want a slice of the main loop.
type Ticker interface {
	Tick()
}
