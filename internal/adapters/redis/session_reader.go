package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/medportal/portalgate/internal/sessioncookie"
	"golang.org/x/sync/singleflight"
)

// SessionReaderConfig configures a cookie + Redis backed session reader.
type SessionReaderConfig struct {
	Store        ports.SessionStore
	CookieName   string        // defaults to sessioncookie.Name
	CookieDomain string        // shared parent domain so every portal sees the cookie
	TTL          time.Duration // sliding extension applied on refresh; 0 disables refresh
	// RefreshWindow triggers a refresh when less than this remains before expiry.
	RefreshWindow time.Duration
	// LoadTimeout bounds a shared store round-trip. It is detached from the request that
	// started it so a cancelled caller does not fail the others waiting on the same load.
	LoadTimeout time.Duration
	Logger      *slog.Logger
	Now           func() time.Time
}

// DefaultLoadTimeout bounds a shared session load when no timeout is configured.
const DefaultLoadTimeout = 2 * time.Second

// SessionReader resolves the session_id cookie to a session snapshot.
// Concurrent reads of the same session ID share one store round-trip.
type SessionReader struct {
	cfg   SessionReaderConfig
	group singleflight.Group
}

var _ ports.SessionReader = (*SessionReader)(nil)

// NewSessionReader constructs a SessionReader.
func NewSessionReader(cfg SessionReaderConfig) (*SessionReader, error) {
	if cfg.Store == nil {
		return nil, errors.New("session reader: store is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = sessioncookie.Name
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	return &SessionReader{cfg: cfg}, nil
}

type loadResult struct {
	record    domainauth.Session
	found     bool
	refreshed bool
}

// Read implements ports.SessionReader.
func (sr *SessionReader) Read(r *http.Request) (ports.SessionRead, error) {
	c, err := r.Cookie(sr.cfg.CookieName)
	if err != nil || c.Value == "" {
		return ports.SessionRead{Session: access.Anonymous()}, nil
	}

	ctx := r.Context()
	ch := sr.group.DoChan(c.Value, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sr.cfg.LoadTimeout)
		defer cancel()
		return sr.load(loadCtx, c.Value)
	})

	var shared singleflight.Result
	select {
	case shared = <-ch:
	case <-ctx.Done():
		return ports.SessionRead{}, fmt.Errorf("read session: %w", ctx.Err())
	}
	if shared.Err != nil {
		return ports.SessionRead{}, shared.Err
	}
	res, ok := shared.Val.(loadResult)
	if !ok {
		return ports.SessionRead{}, fmt.Errorf("session reader: unexpected result %T", shared.Val)
	}
	if !res.found {
		return ports.SessionRead{Session: access.Anonymous()}, nil
	}

	out := ports.SessionRead{Session: access.FromRecord(res.record)}
	if res.refreshed {
		out.Refreshed = []*http.Cookie{
			sessioncookie.New(r, sr.cfg.CookieName, res.record.ID, sr.cfg.CookieDomain, res.record.ExpiresAt),
		}
	}
	return out, nil
}

func (sr *SessionReader) load(ctx context.Context, id string) (loadResult, error) {
	rec, err := sr.cfg.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return loadResult{}, nil
		}
		return loadResult{}, fmt.Errorf("load session: %w", err)
	}

	res := loadResult{record: rec, found: true}
	if !sr.needsRefresh(rec) {
		return res, nil
	}

	refreshed := rec
	refreshed.ExpiresAt = sr.cfg.Now().Add(sr.cfg.TTL)
	if saveErr := sr.cfg.Store.Save(ctx, refreshed); saveErr != nil {
		// The current record is still valid; serve it and retry the refresh next request.
		sr.cfg.Logger.WarnContext(ctx, "session refresh failed", "error", saveErr)
		return res, nil
	}
	res.record = refreshed
	res.refreshed = true
	return res, nil
}

func (sr *SessionReader) needsRefresh(rec domainauth.Session) bool {
	if sr.cfg.TTL <= 0 || sr.cfg.RefreshWindow <= 0 {
		return false
	}
	return rec.ExpiresAt.Sub(sr.cfg.Now()) < sr.cfg.RefreshWindow
}
