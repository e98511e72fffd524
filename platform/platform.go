// Package platform is the composition root. It determines the boot mode
// from the stored credentials, assembles the route engine, the auth
// pipeline and the network controller, registers the built-in routes for
// the active mode, and exposes the finished handler to the servers.
package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ferrisk/beacon/auth"
	"github.com/ferrisk/beacon/config"
	"github.com/ferrisk/beacon/creds"
	"github.com/ferrisk/beacon/engine"
	"github.com/ferrisk/beacon/storage"
	"github.com/ferrisk/beacon/wifi"
)

// Mode is the platform's operating mode, fixed for the life of the boot.
// Mode changes happen through a restart.
type Mode int

const (
	ModePortal Mode = iota
	ModeConnected
)

func (m Mode) String() string {
	if m == ModePortal {
		return "portal"
	}
	return "connected"
}

// Platform ties the subsystems together.
type Platform struct {
	cfg        config.Config
	engine     *engine.Engine
	pipeline   *auth.Pipeline
	creds      *creds.Store
	controller *wifi.Controller
	restart    *wifi.RestartScheduler
	dns        *wifi.DNSResponder
	log        zerolog.Logger

	mode Mode
}

// New assembles a platform from its dependencies. Nothing starts until
// Begin runs.
func New(cfg config.Config, radio wifi.Radio, region creds.Region, store storage.Store, restarter wifi.Restarter, log zerolog.Logger) *Platform {
	credStore := creds.New(region, log)

	controller := wifi.NewController(radio, credStore, wifi.ControllerConfig{
		APSSID:         cfg.APSSID(),
		APIP:           cfg.Network.APIP,
		ConnectRetries: cfg.Network.ConnectRetries,
		ConnectTimeout: cfg.Network.ConnectTimeout,
	}, log)

	pipeline := auth.NewPipeline(
		auth.NewIdentityStore(store, log),
		auth.NewSessionStore(cfg.Auth.SessionCapacity, cfg.Auth.SessionTTL, log),
		auth.NewTokenStore(store, cfg.Auth.TokenCapacity, log),
		auth.NewPageTokenStore(cfg.Auth.PageTokenTTL, log),
		log,
	)

	return &Platform{
		cfg:        cfg,
		pipeline:   pipeline,
		creds:      credStore,
		controller: controller,
		restart:    wifi.NewRestartScheduler(cfg.Network.RestartDelay, restarter, log),
		log:        log.With().Str("component", "platform").Logger(),
	}
}

// Begin walks the startup sequence: connect or raise the portal, build the
// route table for the resulting mode, and seal it. After Begin the route
// table is immutable; modules must be registered before.
func (p *Platform) Begin(ctx context.Context, modules map[string]engine.Module) error {
	state, err := p.controller.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting network controller: %w", err)
	}

	p.mode = ModeConnected
	if state == wifi.StateCaptivePortal {
		p.mode = ModePortal
	}

	opts := []engine.Option{
		engine.WithAuthenticator(p.pipeline),
		engine.WithSSIDProvider(p.controller.SSID),
	}
	if p.cfg.Server.ForceHTTPS && p.cfg.Server.HTTPSEnabled && p.mode == ModeConnected {
		opts = append(opts, engine.WithForceHTTPS(p.cfg.Server.HTTPSPort))
	}
	p.engine = engine.New(p.cfg.Device.Name, p.log, opts...)

	// Platform defaults register first so applications and modules can
	// override individual entries before finalization.
	p.registerConnectedRoutes()
	if p.mode == ModePortal {
		p.registerPortalRoutes()
	}
	p.setNavigation()

	for basePath, m := range modules {
		p.engine.RegisterModule(basePath, m)
	}

	if p.mode == ModePortal {
		dns, err := wifi.StartDNSResponder(":53", p.cfg.Network.APIP, p.log)
		if err != nil {
			// Clients reach the portal by IP when hostname capture is
			// unavailable; keep serving.
			p.log.Warn().Err(err).Msg("captive dns unavailable")
		} else {
			p.dns = dns
		}
	}

	p.engine.Finalize()
	p.log.Info().
		Stringer("mode", p.mode).
		Int("routes", p.engine.RouteCount()).
		Msg("platform up")
	return nil
}

// Handler returns the HTTP entry point for both listeners.
func (p *Platform) Handler() http.Handler {
	return p.engine
}

// Engine exposes the route engine for pre-Begin module registration in
// tests and advanced setups.
func (p *Platform) Engine() *engine.Engine {
	return p.engine
}

// Mode returns the operating mode decided at Begin.
func (p *Platform) Mode() Mode {
	return p.mode
}

// Controller returns the network controller.
func (p *Platform) Controller() *wifi.Controller {
	return p.controller
}

// Auth returns the auth pipeline.
func (p *Platform) Auth() *auth.Pipeline {
	return p.pipeline
}

// Tick runs one slice of periodic platform work: link supervision, store
// sweeps, and module ticks.
func (p *Platform) Tick(ctx context.Context) {
	p.controller.CheckLink(ctx)
	p.pipeline.Sweep()
	p.engine.Tick()
}

// Shutdown releases background resources.
func (p *Platform) Shutdown() {
	if p.dns != nil {
		p.dns.Stop()
	}
}
