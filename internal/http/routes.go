package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/medportal/portalgate/internal/domain/access"
	"github.com/medportal/portalgate/internal/observability/statsd"
	"github.com/medportal/portalgate/internal/ports"
)

// PortalRouterOptions holds everything one portal's HTTP handler needs.
type PortalRouterOptions struct {
	Portal   access.PortalID
	Registry *access.Registry
	Env      access.Environment
	Reader   ports.SessionReader

	Exempt            *Exemptions
	ProtectedPrefixes []string
	ReadTimeout       time.Duration

	// Upstream receives allowed requests; nil serves a JSON description of the caller.
	Upstream http.Handler
	// Auth hosts the central auth endpoints; set only for the web portal.
	Auth *AuthHandlers
	// Ready lists dependencies probed by /readyz.
	Ready map[string]Pinger

	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewPortalRouter assembles the handler for one portal: ambient middleware, the access
// interceptor and the portal's routes behind it.
func NewPortalRouter(opts PortalRouterOptions) (http.Handler, error) {
	if opts.Registry == nil {
		return nil, errors.New("router: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	portal, ok := opts.Registry.Portal(opts.Portal)
	if !ok {
		return nil, fmt.Errorf("router: %w: %q", access.ErrPortalNotRegistered, opts.Portal)
	}
	portalURL, err := opts.Registry.PortalURL(opts.Portal, opts.Env)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	webURL, err := opts.Registry.PortalURL(access.PortalWeb, opts.Env)
	if err != nil {
		return nil, fmt.Errorf("router: central web-app: %w", err)
	}

	exempt := opts.Exempt
	if exempt == nil {
		exempt = DefaultExemptions()
	}
	if opts.Auth != nil {
		if exempt, err = exempt.With(AuthRoutePaths()); err != nil {
			return nil, fmt.Errorf("router: %w", err)
		}
	}

	interceptor, err := NewInterceptor(InterceptorConfig{
		Portal:            portal.ID,
		ExpectedRole:      portal.ExpectedRole,
		PortalURL:         portalURL,
		LoginURL:          webURL + LoginPath,
		RoleSelectionURL:  webURL + SelectRolePath,
		Reader:            opts.Reader,
		Decider:           access.NewDecider(opts.Registry, opts.Env),
		Exempt:            exempt,
		ProtectedPrefixes: opts.ProtectedPrefixes,
		ReadTimeout:       opts.ReadTimeout,
		Metrics:           opts.Metrics,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(opts.Ready, logger))
	if opts.Auth != nil {
		registerAuthRoutes(mux, opts.Auth)
	}

	next := opts.Upstream
	if next == nil {
		next = whoamiHandler(portal)
	}
	mux.Handle("/", next)

	return Chain(interceptor.Middleware(mux), Logging(logger.With("portal", string(portal.ID))), Recover(logger)), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET "+LoginPath, h.Login)
	mux.HandleFunc("GET "+CallbackPath, h.Callback)
	mux.HandleFunc("POST "+LogoutPath, h.Logout)
	mux.HandleFunc("GET "+SelectRolePath, h.RoleOptions)
	mux.HandleFunc("POST "+SelectRolePath, h.SelectRole)
	mux.HandleFunc("GET "+StatusPath, h.Status)
}

// whoamiHandler stands in for a portal app that is not proxied.
func whoamiHandler(p access.Portal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"portal":        string(p.ID),
			"expected_role": p.ExpectedRole.String(),
			"path":          r.URL.Path,
			"authenticated": false,
		}
		if s, ok := SessionFromContext(r.Context()); ok && s.Authenticated {
			body["authenticated"] = true
			body["user_id"] = s.UserID
			body["role"] = s.Role.String()
		}
		WriteJSON(w, http.StatusOK, body)
	}
}
