package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/domain/access"
	httpx "github.com/medportal/portalgate/internal/http"
	"github.com/medportal/portalgate/internal/observability/statsd"
	"github.com/medportal/portalgate/internal/ports"
	"golang.org/x/sync/errgroup"
)

// PortalServersConfig contains everything needed to serve the enabled portals.
type PortalServersConfig struct {
	Config   *config.AppConfig
	Registry *access.Registry
	Reader   ports.SessionReader
	// Auth is required when the web portal is enabled; it hosts the central auth endpoints.
	Auth    httpx.AuthService
	Ready   map[string]httpx.Pinger
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// PortalServer pairs a portal with its listener.
type PortalServer struct {
	Portal access.PortalID
	Server *http.Server
}

// BuildPortalServers creates one HTTP server per enabled portal.
func BuildPortalServers(cfg PortalServersConfig) ([]PortalServer, error) {
	if cfg.Config == nil || cfg.Registry == nil {
		return nil, errors.New("portal servers: config and registry are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	env := appCfg.Environment()

	ids, err := appCfg.Portals.EnabledIDs()
	if err != nil {
		return nil, err
	}

	servers := make([]PortalServer, 0, len(ids))
	for _, id := range ids {
		handler, addr, buildErr := buildPortalHandler(cfg, id, env, logger)
		if buildErr != nil {
			return nil, fmt.Errorf("portal %s: %w", id, buildErr)
		}
		servers = append(servers, PortalServer{
			Portal: id,
			Server: newServer(appCfg.HTTP, addr, handler),
		})
	}
	return servers, nil
}

func buildPortalHandler(
	cfg PortalServersConfig,
	id access.PortalID,
	env access.Environment,
	logger *slog.Logger,
) (http.Handler, string, error) {
	portal, ok := cfg.Registry.Portal(id)
	if !ok {
		return nil, "", access.ErrPortalNotRegistered
	}
	pc := cfg.Config.Portals.For(portal)

	exempt, err := httpx.DefaultExemptions().With(pc.ExemptPaths)
	if err != nil {
		return nil, "", fmt.Errorf("exempt paths: %w", err)
	}

	var upstream http.Handler
	if pc.Upstream != "" {
		upstream, err = httpx.NewUpstreamProxy(pc.Upstream, logger.With("portal", string(id)))
		if err != nil {
			return nil, "", err
		}
	}

	var auth *httpx.AuthHandlers
	if id == access.PortalWeb {
		if cfg.Auth == nil {
			return nil, "", errors.New("web portal requires the auth service")
		}
		auth, err = newAuthHandlers(cfg, env, logger)
		if err != nil {
			return nil, "", err
		}
	}

	handler, err := httpx.NewPortalRouter(httpx.PortalRouterOptions{
		Portal:            id,
		Registry:          cfg.Registry,
		Env:               env,
		Reader:            cfg.Reader,
		Exempt:            exempt,
		ProtectedPrefixes: pc.ProtectedPrefixes,
		ReadTimeout:       cfg.Config.Session.ReadTimeout,
		Upstream:          upstream,
		Auth:              auth,
		Ready:             cfg.Ready,
		Metrics:           cfg.Metrics,
		Logger:            logger,
	})
	if err != nil {
		return nil, "", err
	}
	return handler, pc.Addr, nil
}

func newAuthHandlers(cfg PortalServersConfig, env access.Environment, logger *slog.Logger) (*httpx.AuthHandlers, error) {
	_, err := cfg.Registry.PortalURL(access.PortalWeb, env)
	if err != nil {
		return nil, err
	}
	return &httpx.AuthHandlers{
		Svc:          cfg.Auth,
		Registry:     cfg.Registry,
		Env:          env,
		Returns:      ReturnPolicy(cfg.Registry, env),
		CallbackURL:  CallbackURL(cfg.Registry, env, cfg.Config.Auth.OAuth.RedirectURL),
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		Logger:       logger,
	}, nil
}

// ReturnPolicy accepts return URLs on the base domain and on every registered portal URL.
func ReturnPolicy(reg *access.Registry, env access.Environment) httpx.ReturnURLPolicy {
	policy := httpx.ReturnURLPolicy{BaseDomain: reg.BaseDomain()}
	for _, p := range reg.Portals() {
		u, err := reg.PortalURL(p.ID, env)
		if err != nil {
			continue
		}
		policy.Origins = append(policy.Origins, u)
		if p.ID == access.PortalWeb {
			policy.Fallback = u
		}
	}
	return policy
}

// CallbackURL is the IdP redirect target: the explicit override or the web portal's callback path.
func CallbackURL(reg *access.Registry, env access.Environment, override string) string {
	if override != "" {
		return override
	}
	webURL, err := reg.PortalURL(access.PortalWeb, env)
	if err != nil {
		return ""
	}
	return webURL + httpx.CallbackPath
}

func newServer(cfg config.HTTPConfig, addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// ServePortals runs every server until ctx is cancelled or one of them fails,
// then shuts all of them down within shutdownTimeout.
func ServePortals(ctx context.Context, servers []PortalServer, shutdownTimeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	g, gctx := errgroup.WithContext(ctx)

	for _, ps := range servers {
		g.Go(func() error {
			logger.Info("starting HTTP server", "portal", string(ps.Portal), "addr", ps.Server.Addr)
			if err := ps.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("portal %s: %w", ps.Portal, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownServers(context.WithoutCancel(ctx), servers, shutdownTimeout, logger)
	})

	return g.Wait()
}

// ShutdownServers gracefully shuts down every portal server.
func ShutdownServers(ctx context.Context, servers []PortalServer, timeout time.Duration, logger *slog.Logger) error {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger != nil {
		logger.Info("shutting down HTTP servers", "count", len(servers))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	for _, ps := range servers {
		if err := ps.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("portal %s: %w", ps.Portal, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if logger != nil {
		logger.Info("HTTP servers stopped")
	}
	return nil
}
