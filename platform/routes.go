package platform

import "github.com/ferrisk/beacon/engine"

// Requirement sets for the built-in routes. State-changing sets carry
// AuthPageToken so browser sessions can act through the CSRF token; the
// bare session member never admits a mutating method.
var (
	sessionOnly   = engine.AuthRequirements{engine.AuthSession}
	sessionOrPage = engine.AuthRequirements{engine.AuthSession, engine.AuthPageToken}
	readAny       = engine.AuthRequirements{engine.AuthSession, engine.AuthToken}
	mutateAny     = engine.AuthRequirements{engine.AuthSession, engine.AuthPageToken, engine.AuthToken}
)

// registerConnectedRoutes installs the station-mode route table. These
// register first in every mode so portal overrides can replace individual
// entries.
func (p *Platform) registerConnectedRoutes() {
	e := p.engine

	e.RegisterRoute("/", p.handleHome, sessionOnly, engine.GET)
	e.RegisterRoute("/wifi", p.handleWiFiPage, sessionOnly, engine.GET)
	e.RegisterRoute("/account", p.handleAccountPage, sessionOnly, engine.GET)

	e.RegisterRoute("/login", p.handleLoginPage, engine.Public, engine.GET)
	e.RegisterRoute("/login", p.handleLogin, engine.Public, engine.POST)
	e.RegisterRoute("/logout", p.handleLogout, sessionOnly, engine.GET)
	e.RegisterRoute("/setup", p.handleSetupPage, engine.Public, engine.GET)
	e.RegisterRoute("/setup", p.handleSetup, engine.Public, engine.POST)

	e.RegisterRoute("/assets/*", p.handleAsset, engine.Public, engine.GET)

	e.RegisterAPIRoute("status", p.handleStatus, readAny, engine.GET,
		&engine.Docs{Summary: "Device status"})
	e.RegisterAPIRoute("scan", p.handleScan, sessionOrPage, engine.GET,
		&engine.Docs{Summary: "Survey nearby networks"})
	e.RegisterAPIRoute("wifi", p.handleWiFiSave, sessionOrPage, engine.POST,
		&engine.Docs{Summary: "Save credentials and restart"})
	e.RegisterAPIRoute("reset", p.handleReset, mutateAny, engine.POST,
		&engine.Docs{Summary: "Clear credentials and restart"})
	e.RegisterAPIRoute("restart", p.handleRestart, mutateAny, engine.POST,
		&engine.Docs{Summary: "Restart the device"})

	e.RegisterAPIRoute("account/password", p.handlePasswordChange, sessionOrPage, engine.POST, nil)
	e.RegisterAPIRoute("account/tokens", p.handleTokenList, sessionOnly, engine.GET, nil)
	e.RegisterAPIRoute("account/tokens", p.handleTokenCreate, sessionOrPage, engine.POST, nil)
	e.RegisterAPIRoute("tokens/{id}", p.handleTokenRevoke, mutateAny, engine.DELETE, nil)

	e.RegisterAPIRoute("users", p.handleUserList, readAny, engine.GET, nil)
	e.RegisterAPIRoute("users", p.handleUserCreate, mutateAny, engine.POST, nil)
	e.RegisterAPIRoute("users/{id}", p.handleUserGet, readAny, engine.GET, nil)
	e.RegisterAPIRoute("users/{id}", p.handleUserDelete, mutateAny, engine.DELETE, nil)
	e.RegisterAPIRoute("users/{id}/tokens", p.handleUserTokenList, readAny, engine.GET, nil)
	e.RegisterAPIRoute("users/{id}/tokens", p.handleUserTokenCreate, mutateAny, engine.POST, nil)
}

// registerPortalRoutes overrides the entries the captive portal opens up.
// The portal network is an isolated AP with no stored secrets worth
// protecting, so provisioning runs unauthenticated.
func (p *Platform) registerPortalRoutes() {
	e := p.engine

	e.RegisterRoute("/", p.handlePortalPage, engine.Public, engine.GET)
	e.RegisterRoute("/save", p.handlePortalSave, engine.Public, engine.POST)

	e.RegisterAPIRoute("scan", p.handleScan, engine.Public, engine.GET, nil)
	e.RegisterAPIRoute("status", p.handleStatus, engine.Public, engine.GET, nil)
	e.RegisterAPIRoute("reset", p.handleReset, engine.Public, engine.POST, nil)

	// Captive-portal probes from the major OS vendors land on the portal
	// page so the sign-in sheet opens.
	for _, probe := range []string{
		"/generate_204",
		"/gen_204",
		"/hotspot-detect.html",
		"/connecttest.txt",
		"/ncsi.txt",
	} {
		e.AddRedirect(probe, "/")
	}
}

func (p *Platform) setNavigation() {
	p.engine.SetNavigation([]engine.NavItem{
		{Name: "Home", URL: "/"},
		{Name: "WiFi", URL: "/wifi", Visibility: engine.NavAuthenticatedOnly},
		{Name: "Account", URL: "/account", Visibility: engine.NavAuthenticatedOnly},
		{Name: "Log out", URL: "/logout", Visibility: engine.NavAuthenticatedOnly},
		{Name: "Log in", URL: "/login", Visibility: engine.NavUnauthenticatedOnly},
	})
}
