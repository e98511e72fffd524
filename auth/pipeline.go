// Package auth implements the platform's authentication pipeline: the
// identity store, cookie sessions, bearer API tokens, one-shot page tokens,
// and the per-request classifier that decides which authenticator satisfies
// a route's requirement set.
package auth

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/engine"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "session"

// csrfHeaderName and csrfFormField are the two places a page token may be
// presented on a state-changing request.
const (
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "_csrf"
)

// Pipeline wires the stores into the classifier the engine consults.
type Pipeline struct {
	Identities *IdentityStore
	Sessions   *SessionStore
	Tokens     *TokenStore
	PageTokens *PageTokenStore
	log        zerolog.Logger
}

var _ engine.Authenticator = (*Pipeline)(nil)

// NewPipeline assembles the auth pipeline from its stores.
func NewPipeline(identities *IdentityStore, sessions *SessionStore, tokens *TokenStore, pageTokens *PageTokenStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Identities: identities,
		Sessions:   sessions,
		Tokens:     tokens,
		PageTokens: pageTokens,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// Authenticate classifies the request against the requirement set R.
// Authenticators are evaluated in a fixed order; admission is an OR across
// R. For state-changing methods a bare session cookie never admits: the
// request must carry a page token (consumed here), a bearer token, or
// qualify under another member of R. That rule is what stops CSRF.
func (p *Pipeline) Authenticate(req *engine.Request, requirements engine.AuthRequirements) (engine.AuthContext, bool) {
	ctx := engine.AuthContext{LocalNetwork: isLocalIP(req.ClientIP())}

	if len(requirements) == 0 || requirements.Has(engine.AuthNone) {
		ctx.Authenticated = true
		ctx.Via = engine.AuthNone
		return ctx, true
	}

	if requirements.Has(engine.AuthSession) && !req.IsStateChanging() {
		if session, identity := p.sessionIdentity(req); session != nil {
			ctx.Authenticated = true
			ctx.Via = engine.AuthSession
			ctx.SessionID = session.ID
			ctx.IdentityID = identity.ID
			ctx.Username = identity.Username
			ctx.IsAdmin = identity.IsAdmin
			return ctx, true
		}
	}

	if requirements.Has(engine.AuthToken) {
		if raw := req.BearerToken(); raw != "" {
			if token, err := p.Tokens.Validate(raw); err == nil {
				if identity, err := p.Identities.Get(token.IdentityID); err == nil {
					ctx.Authenticated = true
					ctx.Via = engine.AuthToken
					ctx.IdentityID = identity.ID
					ctx.Username = identity.Username
					ctx.IsAdmin = identity.IsAdmin
					return ctx, true
				}
			}
		}
	}

	if requirements.Has(engine.AuthPageToken) {
		// A page token presupposes a live session; it also covers the
		// state-changing case a bare session cannot.
		if session, identity := p.sessionIdentity(req); session != nil {
			value := req.Header.Get(csrfHeaderName)
			if value == "" {
				value = req.Form.Get(csrfFormField)
			}
			if p.PageTokens.Consume(value, session.ID) {
				ctx.Authenticated = true
				ctx.Via = engine.AuthPageToken
				ctx.SessionID = session.ID
				ctx.IdentityID = identity.ID
				ctx.Username = identity.Username
				ctx.IsAdmin = identity.IsAdmin
				return ctx, true
			}
		}
	}

	if requirements.Has(engine.AuthLocalOnly) && ctx.LocalNetwork {
		ctx.Authenticated = true
		ctx.Via = engine.AuthLocalOnly
		return ctx, true
	}

	return ctx, false
}

// IssuePageToken implements engine.Authenticator for template injection.
func (p *Pipeline) IssuePageToken(sessionID string) (string, error) {
	return p.PageTokens.Issue(sessionID)
}

// Login verifies credentials and opens a session.
func (p *Pipeline) Login(username, password string) (*Session, *Identity, error) {
	identity, err := p.Identities.Authenticate(username, password)
	if err != nil {
		return nil, nil, err
	}
	session, err := p.Sessions.Create(identity.ID)
	if err != nil {
		return nil, nil, err
	}
	p.log.Info().Str("username", identity.Username).Msg("login")
	return session, identity, nil
}

// Logout destroys the session named by the request's cookie.
func (p *Pipeline) Logout(req *engine.Request) {
	if id := req.Cookie(SessionCookieName); id != "" {
		p.Sessions.Delete(id)
	}
}

// Sweep expires stale sessions and page tokens. Driven from the main loop.
func (p *Pipeline) Sweep() {
	p.Sessions.Sweep()
	p.PageTokens.Sweep()
}

func (p *Pipeline) sessionIdentity(req *engine.Request) (*Session, *Identity) {
	session, ok := p.Sessions.Get(req.Cookie(SessionCookieName))
	if !ok {
		return nil, nil
	}
	identity, err := p.Identities.Get(session.IdentityID)
	if err != nil {
		// Identity deleted out from under the session.
		p.Sessions.Delete(session.ID)
		return nil, nil
	}
	return session, identity
}

// isLocalIP reports whether ip belongs to the local network: loopback,
// RFC 1918 private ranges, or link-local.
func isLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
