// Package engine implements the platform's route registration and dispatch:
// an exact-match route table over interned paths, request/response
// envelopes, redirect rules, navigation injection, and single-pass template
// slot expansion.
package engine

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/pool"
)

// Engine owns the route table and its string pool. Registration happens
// during startup from a single goroutine; Finalize seals both, after which
// the table is read-only and dispatch needs no locks.
type Engine struct {
	mu         sync.RWMutex
	pool       *pool.Pool
	routes     []Route
	redirects  []RedirectRule
	nav        []NavItem
	errorPages map[int]string
	modules    []mountedModule
	finalized  bool

	auth       Authenticator
	deviceName string
	ssidFn     func() string
	forceHTTPS bool
	httpsPort  int

	log zerolog.Logger
}

type mountedModule struct {
	basePath string
	module   Module
}

// Option configures the engine.
type Option func(*Engine)

// WithAuthenticator sets the auth pipeline consulted before dispatch.
// Without one, only routes with no auth requirements are reachable.
func WithAuthenticator(a Authenticator) Option {
	return func(e *Engine) { e.auth = a }
}

// WithSSIDProvider supplies the current network SSID for the
// {{NETWORK_SSID}} template slot.
func WithSSIDProvider(fn func() string) Option {
	return func(e *Engine) { e.ssidFn = fn }
}

// WithForceHTTPS makes the plain listener answer every request with a 301
// to the HTTPS listener on the given port.
func WithForceHTTPS(port int) Option {
	return func(e *Engine) {
		e.forceHTTPS = true
		e.httpsPort = port
	}
}

// WithPoolCapacity reserves the route string pool for n entries.
func WithPoolCapacity(n int) Option {
	return func(e *Engine) { e.pool = pool.NewWithCapacity(n, e.log) }
}

// New creates an engine for the named device.
func New(deviceName string, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		deviceName: deviceName,
		errorPages: make(map[int]string),
		log:        log.With().Str("component", "engine").Logger(),
	}
	e.pool = pool.New(e.log)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterRoute adds an application route served on both protocols.
// Re-registering an identical (path, method, protocol) triple replaces the
// existing entry; platform defaults register first, so applications can
// re-skin built-in endpoints.
func (e *Engine) RegisterRoute(path string, handler HandlerFunc, auth AuthRequirements, method Method) {
	e.register(path, handler, auth, method, AnyProtocol, nil)
}

// RegisterRouteForProtocol adds a route restricted to one listener.
func (e *Engine) RegisterRouteForProtocol(path string, handler HandlerFunc, auth AuthRequirements, method Method, protocols Protocol) {
	e.register(path, handler, auth, method, protocols, nil)
}

// RegisterAPIRoute adds a route under the /api/ prefix. The subpath is
// canonicalized: "scan", "/scan", "api/scan" and "/api/scan" all mount at
// /api/scan.
func (e *Engine) RegisterAPIRoute(subpath string, handler HandlerFunc, auth AuthRequirements, method Method, docs *Docs) {
	e.register(CanonicalAPIPath(subpath), handler, auth, method, AnyProtocol, docs)
}

// RegisterModule mounts every route a module declares under basePath.
// Modules implementing Initializer are initialized during Finalize.
func (e *Engine) RegisterModule(basePath string, m Module) {
	e.mu.Lock()
	if e.finalized {
		e.mu.Unlock()
		e.log.Error().Str("module", m.Name()).Msg("module registration after finalization refused")
		return
	}
	e.modules = append(e.modules, mountedModule{basePath: NormalizePath(basePath), module: m})
	e.mu.Unlock()

	for _, mr := range m.Routes() {
		path := joinPath(basePath, mr.Subpath)
		protocols := mr.Protocols
		if protocols == 0 {
			protocols = AnyProtocol
		}
		e.register(path, mr.Handler, mr.Auth, mr.Method, protocols, mr.Docs)
	}
	e.log.Info().Str("module", m.Name()).Str("version", m.Version()).Str("base", basePath).Int("routes", len(m.Routes())).Msg("module mounted")
}

func (e *Engine) register(path string, handler HandlerFunc, auth AuthRequirements, method Method, protocols Protocol, docs *Docs) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.finalized {
		e.log.Error().Str("path", path).Str("method", string(method)).Msg("route registration after finalization refused")
		return
	}
	if handler == nil {
		e.log.Error().Str("path", path).Msg("route registration without handler refused")
		return
	}
	normalized := NormalizePath(path)

	// Replace on identical (path, method, protocol) triple.
	for i := range e.routes {
		if *e.routes[i].Path == normalized && e.routes[i].Method == method && e.routes[i].Protocols == protocols {
			e.log.Debug().Str("path", normalized).Str("method", string(method)).Msg("route replaced")
			e.routes[i].Handler = handler
			e.routes[i].Auth = auth
			e.routes[i].Docs = docs
			return
		}
	}

	interned := e.pool.Store(normalized)
	if interned == nil {
		e.log.Error().Str("path", normalized).Msg("route path could not be interned; route will be absent")
		return
	}
	e.routes = append(e.routes, Route{
		Path:      interned,
		Method:    method,
		Protocols: protocols,
		Auth:      auth,
		Handler:   handler,
		Docs:      docs,
	})
}

// AddRedirect installs a redirect rule, consulted before route matching.
func (e *Engine) AddRedirect(from, to string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		e.log.Error().Str("from", from).Msg("redirect registration after finalization refused")
		return
	}
	e.redirects = append(e.redirects, RedirectRule{From: NormalizePath(from), To: to})
}

// SetNavigation replaces the navigation menu injected into {{NAV_MENU}}.
func (e *Engine) SetNavigation(items []NavItem) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		e.log.Error().Msg("navigation change after finalization refused")
		return
	}
	e.nav = items
}

// SetErrorPage installs a custom HTML body for a status code.
func (e *Engine) SetErrorPage(status int, html string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		e.log.Error().Int("status", status).Msg("error page change after finalization refused")
		return
	}
	e.errorPages[status] = html
}

// Finalize freezes the route table, seals the string pool, and runs module
// init hooks. Idempotent.
func (e *Engine) Finalize() {
	e.mu.Lock()
	if e.finalized {
		e.mu.Unlock()
		return
	}
	e.finalized = true
	e.pool.Seal()
	modules := e.modules
	count := len(e.routes)
	e.mu.Unlock()

	for _, mm := range modules {
		if init, ok := mm.module.(Initializer); ok {
			if err := init.Init(); err != nil {
				e.log.Error().Err(err).Str("module", mm.module.Name()).Msg("module init failed")
			}
		}
	}
	e.log.Info().Int("routes", count).Int("pool_bytes", e.pool.MemoryUsage()).Msg("route table finalized")
}

// Finalized reports whether the table is frozen.
func (e *Engine) Finalized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.finalized
}

// RouteCount returns the number of registered routes, for diagnostics.
func (e *Engine) RouteCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.routes)
}

// Tick gives every module with a Tick hook a slice of the main loop.
func (e *Engine) Tick() {
	e.mu.RLock()
	modules := e.modules
	e.mu.RUnlock()
	for _, mm := range modules {
		if t, ok := mm.module.(Ticker); ok {
			t.Tick()
		}
	}
}

// Modules returns name/version/description of every mounted module.
func (e *Engine) Modules() []ModuleInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	infos := make([]ModuleInfo, 0, len(e.modules))
	for _, mm := range e.modules {
		infos = append(infos, ModuleInfo{
			Name:        mm.module.Name(),
			Version:     mm.module.Version(),
			Description: mm.module.Description(),
			BasePath:    mm.basePath,
		})
	}
	return infos
}

// ModuleInfo describes a mounted module for status reporting.
type ModuleInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	BasePath    string `json:"base_path"`
}

// ServeHTTP implements http.Handler for both listeners.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	proto := HTTP
	if r.TLS != nil {
		proto = HTTPS
	}

	if e.forceHTTPS && proto == HTTP {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		target := "https://" + host
		if e.httpsPort != 443 {
			target = fmt.Sprintf("https://%s:%d", host, e.httpsPort)
		}
		http.Redirect(w, r, target+r.URL.RequestURI(), http.StatusMovedPermanently)
		return
	}

	req := ParseRequest(r)
	res := e.Dispatch(req, proto)
	res.write(w)
}

// Dispatch resolves the envelope to at most one route and runs it through
// the auth pipeline and handler. It never panics: handler faults become
// opaque 500s.
func (e *Engine) Dispatch(req *Request, proto Protocol) *Response {
	res := e.dispatch(req, proto)
	if res.IsHTML() {
		e.expandTemplates(req, res)
	}
	return res
}

func (e *Engine) dispatch(req *Request, proto Protocol) *Response {
	res := NewResponse()

	// Redirect table first; a hit bypasses matching entirely.
	for _, rule := range e.redirectRules() {
		if rule.From == req.Path {
			res.Redirect(rule.To, http.StatusMovedPermanently)
			return res
		}
	}

	route, params, pathMatched := e.match(req.Path, req.Method, proto)
	if route == nil {
		if pathMatched {
			e.writeError(req, res, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		} else {
			e.writeError(req, res, http.StatusNotFound, "not_found", "Not found")
		}
		return res
	}
	req.PathParams = params

	if !e.authorize(req, res, route) {
		return res
	}

	e.invoke(route, req, res)
	return res
}

func (e *Engine) redirectRules() []RedirectRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.redirects
}

// invoke runs the handler behind a recover boundary.
func (e *Engine) invoke(route *Route, req *Request, res *Response) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("path", req.Path).Msg("handler panicked")
			*res = *NewResponse()
			e.writeError(req, res, http.StatusInternalServerError, "internal", "Internal error")
		}
	}()
	route.Handler(req, res)
}

// authorize runs the auth pipeline against the route's requirement set.
func (e *Engine) authorize(req *Request, res *Response, route *Route) bool {
	if !route.Auth.RequiresAuth() {
		req.Auth = AuthContext{Authenticated: true, Via: AuthNone}
		return true
	}
	if e.auth == nil {
		e.log.Error().Str("path", req.Path).Msg("route requires auth but no authenticator is installed")
		e.writeError(req, res, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return false
	}

	ctx, ok := e.auth.Authenticate(req, route.Auth)
	req.Auth = ctx
	if ok {
		return true
	}

	switch {
	case req.BearerToken() != "":
		// Token-style clients get a terminal 403.
		e.writeError(req, res, http.StatusForbidden, "forbidden", "Access denied")
	case !req.WantsJSON() && route.Auth.Has(AuthSession):
		// Browser UI routes bounce to the login page.
		res.Redirect("/login?redirect="+req.Path, http.StatusFound)
	default:
		e.writeError(req, res, http.StatusUnauthorized, "unauthorized", "Authentication required")
	}
	return false
}

// match finds the route for (path, method, proto). Exact paths win over
// {param} paths, which win over trailing-wildcard paths. pathMatched
// reports whether any route matched the path and protocol regardless of
// method, which distinguishes 405 from 404.
func (e *Engine) match(path string, method Method, proto Protocol) (*Route, map[string]string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	const (
		rankNone = iota
		rankWildcard
		rankParam
		rankExact
	)
	best := rankNone
	var found *Route
	var foundParams map[string]string
	pathMatched := false

	for i := range e.routes {
		route := &e.routes[i]
		if route.Protocols&proto == 0 {
			continue
		}
		rank, params := matchPath(*route.Path, path)
		if rank == rankNone {
			continue
		}
		pathMatched = true
		if route.Method != method {
			continue
		}
		if rank > best {
			best = rank
			found = route
			foundParams = params
		}
	}
	return found, foundParams, pathMatched
}

// matchPath ranks how routePath matches requestPath: 3 exact, 2 parameter
// segments, 1 trailing wildcard, 0 no match.
func matchPath(routePath, requestPath string) (int, map[string]string) {
	if routePath == requestPath {
		return 3, nil
	}
	if strings.HasSuffix(routePath, "/*") {
		prefix := routePath[:len(routePath)-1]
		if strings.HasPrefix(requestPath, prefix) || requestPath == routePath[:len(routePath)-2] {
			return 1, nil
		}
		return 0, nil
	}
	if !strings.Contains(routePath, "{") {
		return 0, nil
	}

	routeSegs := strings.Split(strings.Trim(routePath, "/"), "/")
	reqSegs := strings.Split(strings.Trim(requestPath, "/"), "/")
	if len(routeSegs) != len(reqSegs) {
		return 0, nil
	}
	params := make(map[string]string)
	for i, rs := range routeSegs {
		if strings.HasPrefix(rs, "{") && strings.HasSuffix(rs, "}") && len(rs) > 2 {
			if reqSegs[i] == "" {
				return 0, nil
			}
			params[rs[1:len(rs)-1]] = reqSegs[i]
			continue
		}
		if rs != reqSegs[i] {
			return 0, nil
		}
	}
	return 2, params
}

// CanonicalAPIPath maps a registration subpath into the /api/ namespace.
func CanonicalAPIPath(subpath string) string {
	s := strings.TrimLeft(subpath, "/")
	switch {
	case s == "api" || s == "":
		return "/api"
	case strings.HasPrefix(s, "api/"):
		return "/" + s
	default:
		return "/api/" + s
	}
}

func joinPath(base, sub string) string {
	base = NormalizePath(base)
	sub = strings.TrimLeft(sub, "/")
	if sub == "" {
		return base
	}
	if base == "/" {
		return "/" + sub
	}
	return base + "/" + sub
}
