package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"net/http"

	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired IDs.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps provider groups to application roles.
// It returns RoleNone when no group grants a role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// ProfileStore persists the role a user completed onboarding with.
type ProfileStore interface {
	// GetRole returns RoleNone when the user has no stored role.
	GetRole(ctx context.Context, userID string) (domainauth.Role, error)
	SetRole(ctx context.Context, userID string, role domainauth.Role) error
}

// SessionRead is the result of reading a request's credentials.
// Refreshed holds cookies the reader re-issued; they are forwarded only on pass-through.
type SessionRead struct {
	Session   access.Session
	Refreshed []*http.Cookie
}

// SessionReader extracts an authenticated identity from request credentials.
// A request without a session is not an error: it yields an anonymous snapshot.
// An error means the reader could not determine the session state at all.
type SessionReader interface {
	Read(r *http.Request) (SessionRead, error)
}
