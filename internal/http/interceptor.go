package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/observability/metrics"
	"github.com/medportal/portalgate/internal/observability/statsd"
	"github.com/medportal/portalgate/internal/ports"
)

// DefaultReadTimeout bounds a session read when none is configured.
const DefaultReadTimeout = 2 * time.Second

// InterceptorConfig binds an Interceptor to one portal.
type InterceptorConfig struct {
	Portal       access.PortalID
	ExpectedRole domainauth.Role
	// PortalURL is this portal's base URL; return URLs are built on it.
	PortalURL string
	// LoginURL and RoleSelectionURL are absolute URLs on the central web-app.
	LoginURL         string
	RoleSelectionURL string

	Reader  ports.SessionReader
	Decider *access.Decider

	Exempt *Exemptions
	// ProtectedPrefixes limits the check to matching paths when non-empty.
	ProtectedPrefixes []string
	ReadTimeout       time.Duration

	Metrics statsd.Sink
	Logger  *slog.Logger
	Now     func() time.Time
}

// Interceptor runs the access decision before every non-exempt request to a portal.
type Interceptor struct {
	cfg    InterceptorConfig
	logger *slog.Logger
}

// NewInterceptor validates cfg and fills defaults.
func NewInterceptor(cfg InterceptorConfig) (*Interceptor, error) {
	switch {
	case cfg.Reader == nil:
		return nil, errors.New("interceptor: session reader is required")
	case cfg.Decider == nil:
		return nil, errors.New("interceptor: decider is required")
	case !cfg.ExpectedRole.Known():
		return nil, fmt.Errorf("interceptor: portal %q has unknown role %q", cfg.Portal, cfg.ExpectedRole)
	case cfg.LoginURL == "" || cfg.RoleSelectionURL == "":
		return nil, errors.New("interceptor: login and role selection URLs are required")
	}
	if cfg.Exempt == nil {
		cfg.Exempt = DefaultExemptions()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		cfg:    cfg,
		logger: logger.With("component", "interceptor", "portal", string(cfg.Portal)),
	}, nil
}

// Middleware wraps next so that only allowed requests reach it.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if i.cfg.Exempt.Match(path) || !protectedBy(i.cfg.ProtectedPrefixes, path) {
			i.emit(metrics.AccessMetric{State: metrics.StateExempt})
			next.ServeHTTP(w, r)
			return
		}

		start := i.cfg.Now()
		read, readErr := i.read(r)
		readDur := i.cfg.Now().Sub(start)

		requestURL := i.requestURL(r)
		d := i.cfg.Decider.DecideRead(read.Session, readErr, i.cfg.ExpectedRole, path, requestURL)

		switch d.Kind {
		case access.KindAllow:
			for _, c := range read.Refreshed {
				http.SetCookie(w, c)
			}
			i.emit(metrics.AccessMetric{
				State:        metrics.StateAllowed,
				Decision:     d.Kind.String(),
				ReadDuration: readDur,
			})
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), read.Session)))
		case access.KindError:
			i.fail(w, r, d, requestURL, readDur)
		default:
			target := i.redirectTarget(d)
			i.logger.InfoContext(r.Context(), "access redirect",
				"path", path,
				"decision", d.Kind.String(),
				"user_id", read.Session.UserID,
				"role", read.Session.Role.String(),
			)
			i.emit(metrics.AccessMetric{
				State:        metrics.StateRedirecting,
				Decision:     d.Kind.String(),
				ReadDuration: readDur,
			})
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		}
	})
}

// read calls the Session Reader with a bounded context. A reader that ignores its context
// is abandoned at the deadline; its eventual result is dropped.
func (i *Interceptor) read(r *http.Request) (ports.SessionRead, error) {
	ctx, cancel := context.WithTimeout(r.Context(), i.cfg.ReadTimeout)
	defer cancel()

	type result struct {
		read ports.SessionRead
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := i.cfg.Reader.Read(r.WithContext(ctx))
		ch <- result{read: out, err: err}
	}()

	select {
	case res := <-ch:
		return res.read, res.err
	case <-ctx.Done():
		return ports.SessionRead{}, fmt.Errorf("read session: %w", ctx.Err())
	}
}

// fail maps an Error decision onto a safe redirect. No error detail reaches the client.
func (i *Interceptor) fail(w http.ResponseWriter, r *http.Request, d access.Decision, requestURL string, readDur time.Duration) {
	var target string
	switch d.Failure {
	case access.FailureUnknownRole:
		target = i.cfg.RoleSelectionURL
		i.logger.WarnContext(r.Context(), "session carries unknown role",
			"path", r.URL.Path, "error", d.Reason)
	case access.FailureRegistryResolution:
		target = i.loginURL(requestURL, i.cfg.Portal)
		i.logger.ErrorContext(r.Context(), "portal registry could not resolve role",
			"path", r.URL.Path, "error", d.Reason)
	default:
		target = i.loginURL(requestURL, i.cfg.Portal)
		i.logger.WarnContext(r.Context(), "session unavailable",
			"path", r.URL.Path, "error", d.Reason)
	}

	i.emit(metrics.AccessMetric{
		State:        metrics.StateFailed,
		Decision:     d.Kind.String(),
		Failure:      d.Failure.String(),
		ReadDuration: readDur,
		Err:          d.Reason,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (i *Interceptor) redirectTarget(d access.Decision) string {
	switch d.Kind {
	case access.KindRedirectToLogin:
		portal := d.Portal
		if portal == "" {
			portal = i.cfg.Portal
		}
		return i.loginURL(d.ReturnTo, portal)
	case access.KindRedirectToRoleSelection:
		return i.cfg.RoleSelectionURL
	default:
		return d.Target
	}
}

func (i *Interceptor) loginURL(returnTo string, portal access.PortalID) string {
	q := url.Values{}
	q.Set("returnTo", returnTo)
	q.Set("portal", string(portal))
	return i.cfg.LoginURL + "?" + q.Encode()
}

func (i *Interceptor) requestURL(r *http.Request) string {
	u, err := access.RequestURL(i.cfg.PortalURL, r.URL.Path, r.URL.RawQuery)
	if err != nil {
		return r.URL.RequestURI()
	}
	return u
}

func (i *Interceptor) emit(m metrics.AccessMetric) {
	m.Portal = string(i.cfg.Portal)
	metrics.EmitAccessDecision(i.cfg.Metrics, m)
}
