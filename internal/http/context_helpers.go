package httpx

import (
	"context"

	"github.com/medportal/portalgate/internal/domain/access"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// WithSession returns a child context carrying the session snapshot that passed the access check.
func WithSession(ctx context.Context, s access.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the snapshot stored by the interceptor and whether one was present.
// Exempt requests never carry a snapshot.
func SessionFromContext(ctx context.Context) (access.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(access.Session)
	return s, ok
}
