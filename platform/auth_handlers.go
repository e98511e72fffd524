package platform

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ferrisk/beacon/auth"
	"github.com/ferrisk/beacon/engine"
	"github.com/ferrisk/beacon/web"
)

func (p *Platform) sessionCookie(req *engine.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   req.TLS,
		SameSite: http.SameSiteStrictMode,
	}
}

func (p *Platform) handleLoginPage(req *engine.Request, res *engine.Response) {
	if !p.pipeline.Identities.HasAdmin() {
		res.Redirect("/setup", http.StatusFound)
		return
	}
	res.Static(web.MustPage("login.html"), "text/html; charset=utf-8")
}

func (p *Platform) handleLogin(req *engine.Request, res *engine.Response) {
	username := req.Param("username")
	password := req.Param("password")
	if req.HasJSONBody() {
		username = req.JSONParam("username")
		password = req.JSONParam("password")
	}

	session, _, err := p.pipeline.Login(username, password)
	if err != nil {
		if req.WantsJSON() {
			res.Error(http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		} else {
			res.Redirect("/login?error=1", http.StatusFound)
		}
		return
	}

	res.SetCookie(p.sessionCookie(req, session.ID, int(p.cfg.Auth.SessionTTL.Seconds())))
	if req.WantsJSON() {
		res.JSON(map[string]any{"success": true})
		return
	}
	// Only same-origin targets: a single leading slash, since browsers
	// treat "//host" as protocol-relative.
	target := req.Param("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = "/"
	}
	res.Redirect(target, http.StatusFound)
}

func (p *Platform) handleLogout(req *engine.Request, res *engine.Response) {
	p.pipeline.Logout(req)
	res.SetCookie(p.sessionCookie(req, "", -1))
	res.Redirect("/login", http.StatusFound)
}

func (p *Platform) handleSetupPage(req *engine.Request, res *engine.Response) {
	if p.pipeline.Identities.HasAdmin() {
		res.Redirect("/login", http.StatusFound)
		return
	}
	res.Static(web.MustPage("setup.html"), "text/html; charset=utf-8")
}

// handleSetup creates the administrator account on first boot. Once an
// admin exists the endpoint is closed for good.
func (p *Platform) handleSetup(req *engine.Request, res *engine.Response) {
	password := req.Param("password")
	confirm := req.Param("confirm")
	if req.HasJSONBody() {
		password = req.JSONParam("password")
		confirm = req.JSONParam("confirm")
	}

	if password == "" || password != confirm {
		res.Error(http.StatusBadRequest, "invalid_request", "Passwords are empty or do not match")
		return
	}

	identity, err := p.pipeline.Identities.Setup(password)
	if err != nil {
		if errors.Is(err, auth.ErrSetupDone) {
			res.Error(http.StatusConflict, "setup_done", "Setup has already been completed")
		} else {
			res.Error(http.StatusBadRequest, "invalid_request", err.Error())
		}
		return
	}

	// Sign the fresh admin in directly.
	session, err := p.pipeline.Sessions.Create(identity.ID)
	if err == nil {
		res.SetCookie(p.sessionCookie(req, session.ID, int(p.cfg.Auth.SessionTTL.Seconds())))
	}
	if req.WantsJSON() {
		res.JSON(map[string]any{"success": true})
		return
	}
	res.Redirect("/", http.StatusFound)
}

func (p *Platform) handleAccountPage(req *engine.Request, res *engine.Response) {
	res.Static(web.MustPage("account.html"), "text/html; charset=utf-8")
}

func (p *Platform) handlePasswordChange(req *engine.Request, res *engine.Response) {
	current := req.JSONParam("current_password")
	next := req.JSONParam("new_password")

	if _, err := p.pipeline.Identities.Authenticate(req.Auth.Username, current); err != nil {
		res.Error(http.StatusForbidden, "invalid_credentials", "Current password is incorrect")
		return
	}
	if err := p.pipeline.Identities.SetPassword(req.Auth.IdentityID, next); err != nil {
		res.Error(http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	// Other sessions of this identity are stale after a password change.
	p.pipeline.Sessions.DeleteForIdentity(req.Auth.IdentityID)
	session, err := p.pipeline.Sessions.Create(req.Auth.IdentityID)
	if err == nil {
		res.SetCookie(p.sessionCookie(req, session.ID, int(p.cfg.Auth.SessionTTL.Seconds())))
	}
	res.JSON(map[string]any{"success": true})
}

func (p *Platform) handleTokenList(req *engine.Request, res *engine.Response) {
	p.writeTokenList(res, req.Auth.IdentityID)
}

func (p *Platform) writeTokenList(res *engine.Response, identityID string) {
	tokens, err := p.pipeline.Tokens.ListForIdentity(identityID)
	if err != nil {
		res.Error(http.StatusInternalServerError, "internal", "Token listing failed")
		return
	}
	type tokenView struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		CreatedAt   string `json:"created_at"`
		LastUsedAt  string `json:"last_used_at,omitempty"`
	}
	views := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		v := tokenView{
			ID:          t.ID,
			Description: t.Description,
			CreatedAt:   t.CreatedAt.Format("2006-01-02"),
		}
		if !t.LastUsedAt.IsZero() {
			v.LastUsedAt = t.LastUsedAt.Format("2006-01-02")
		}
		views = append(views, v)
	}
	res.JSON(map[string]any{"tokens": views})
}

// handleTokenCreate mints an API token. The raw value appears in this
// response only.
func (p *Platform) handleTokenCreate(req *engine.Request, res *engine.Response) {
	p.mintToken(req, res, req.Auth.IdentityID)
}

func (p *Platform) mintToken(req *engine.Request, res *engine.Response, identityID string) {
	description := req.JSONParam("description")
	if description == "" {
		description = req.Param("description")
	}

	token, raw, err := p.pipeline.Tokens.Create(identityID, description)
	if err != nil {
		if errors.Is(err, auth.ErrCapacity) {
			res.Error(http.StatusConflict, "capacity", "Token store is full; revoke one first")
		} else {
			res.Error(http.StatusInternalServerError, "internal", "Token creation failed")
		}
		return
	}
	res.Status = http.StatusCreated
	res.JSON(map[string]any{
		"id":          token.ID,
		"description": token.Description,
		"token":       raw,
	})
}

// handleTokenRevoke removes a token. Owners revoke their own; admins may
// revoke anyone's.
func (p *Platform) handleTokenRevoke(req *engine.Request, res *engine.Response) {
	id := req.Param("id")
	token, err := p.pipeline.Tokens.Get(id)
	if err != nil {
		res.Error(http.StatusNotFound, "not_found", "No such token")
		return
	}
	if token.IdentityID != req.Auth.IdentityID && !req.Auth.IsAdmin {
		res.Error(http.StatusForbidden, "forbidden", "Access denied")
		return
	}
	if err := p.pipeline.Tokens.Revoke(id); err != nil {
		res.Error(http.StatusInternalServerError, "internal", "Token revocation failed")
		return
	}
	res.JSON(map[string]any{"success": true})
}

func (p *Platform) requireAdmin(req *engine.Request, res *engine.Response) bool {
	if !req.Auth.IsAdmin {
		res.Error(http.StatusForbidden, "forbidden", "Administrator privileges required")
		return false
	}
	return true
}

// requireSelfOrAdmin gates per-user resources: users act on their own
// record, admins on anyone's.
func (p *Platform) requireSelfOrAdmin(req *engine.Request, res *engine.Response, id string) bool {
	if id != req.Auth.IdentityID && !req.Auth.IsAdmin {
		res.Error(http.StatusForbidden, "forbidden", "Access denied")
		return false
	}
	return true
}

func (p *Platform) handleUserGet(req *engine.Request, res *engine.Response) {
	id := req.Param("id")
	if !p.requireSelfOrAdmin(req, res, id) {
		return
	}
	identity, err := p.pipeline.Identities.Get(id)
	if err != nil {
		res.Error(http.StatusNotFound, "not_found", "No such user")
		return
	}
	res.JSON(map[string]any{
		"id":       identity.ID,
		"username": identity.Username,
		"is_admin": identity.IsAdmin,
	})
}

func (p *Platform) handleUserTokenList(req *engine.Request, res *engine.Response) {
	id := req.Param("id")
	if !p.requireSelfOrAdmin(req, res, id) {
		return
	}
	if _, err := p.pipeline.Identities.Get(id); err != nil {
		res.Error(http.StatusNotFound, "not_found", "No such user")
		return
	}
	p.writeTokenList(res, id)
}

func (p *Platform) handleUserTokenCreate(req *engine.Request, res *engine.Response) {
	id := req.Param("id")
	if !p.requireSelfOrAdmin(req, res, id) {
		return
	}
	if _, err := p.pipeline.Identities.Get(id); err != nil {
		res.Error(http.StatusNotFound, "not_found", "No such user")
		return
	}
	p.mintToken(req, res, id)
}

func (p *Platform) handleUserList(req *engine.Request, res *engine.Response) {
	if !p.requireAdmin(req, res) {
		return
	}
	identities, err := p.pipeline.Identities.List()
	if err != nil {
		res.Error(http.StatusInternalServerError, "internal", "User listing failed")
		return
	}
	type userView struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		IsAdmin  bool   `json:"is_admin"`
	}
	views := make([]userView, 0, len(identities))
	for _, identity := range identities {
		views = append(views, userView{ID: identity.ID, Username: identity.Username, IsAdmin: identity.IsAdmin})
	}
	res.JSON(map[string]any{"users": views})
}

func (p *Platform) handleUserCreate(req *engine.Request, res *engine.Response) {
	if !p.requireAdmin(req, res) {
		return
	}
	username := req.JSONParam("username")
	password := req.JSONParam("password")

	identity, err := p.pipeline.Identities.Create(username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateUsername):
			res.Error(http.StatusConflict, "duplicate_username", "Username is taken")
		default:
			res.Error(http.StatusBadRequest, "invalid_request", err.Error())
		}
		return
	}
	res.Status = http.StatusCreated
	res.JSON(map[string]any{"id": identity.ID, "username": identity.Username})
}

func (p *Platform) handleUserDelete(req *engine.Request, res *engine.Response) {
	if !p.requireAdmin(req, res) {
		return
	}
	id := req.Param("id")
	if err := p.pipeline.Identities.Delete(id); err != nil {
		switch {
		case errors.Is(err, auth.ErrLastAdmin):
			res.Error(http.StatusForbidden, "last_admin", "The last administrator cannot be removed")
		case errors.Is(err, auth.ErrNotFound):
			res.Error(http.StatusNotFound, "not_found", "No such user")
		default:
			res.Error(http.StatusInternalServerError, "internal", "User deletion failed")
		}
		return
	}

	// Everything the removed identity held is dead weight now.
	p.pipeline.Sessions.DeleteForIdentity(id)
	if err := p.pipeline.Tokens.RevokeForIdentity(id); err != nil {
		p.log.Warn().Err(err).Str("identity", id).Msg("token cleanup after user deletion failed")
	}
	res.JSON(map[string]any{"success": true})
}
