package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
// Profiles is optional; without it roles come only from IdP groups and role selection
// lives in the session alone.
type AuthServiceOptions struct {
	Provider   ports.AuthProvider
	Sessions   ports.SessionStore
	Roles      ports.RoleMapper
	Profiles   ports.ProfileStore
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// AuthService runs the central login flow: IdP exchange, role resolution, session persistence
// and onboarding role selection.
type AuthService struct {
	provider   ports.AuthProvider
	sessions   ports.SessionStore
	roles      ports.RoleMapper
	profiles   ports.ProfileStore
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

var (
	// ErrSessionExpired is returned for a session past its expiry; the record is removed.
	ErrSessionExpired = errors.New("session expired")
	// ErrRoleNotSelectable is returned when a user picks a role reserved for administrators.
	ErrRoleNotSelectable = errors.New("role cannot be self-selected")
	// ErrRoleAlreadyAssigned is returned when a user with a completed role tries to pick another.
	ErrRoleAlreadyAssigned = errors.New("role already assigned")
)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:   opts.Provider,
		sessions:   opts.Sessions,
		roles:      opts.Roles,
		profiles:   opts.Profiles,
		sessionTTL: opts.SessionTTL,
		logger:     logger.With("component", "auth_service"),
		now:        now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow and returns the provider auth URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the code for an identity, resolves the role and persists a session.
// The stored profile role wins over IdP groups; with neither, the session is pending role selection.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	switch {
	case input.Code == "":
		return nil, errors.New("authorization code is required")
	case input.State == "":
		return nil, errors.New("state parameter is required")
	case input.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if identity.UserID == "" {
		return nil, errors.New("identity provider returned no user ID")
	}

	role, err := s.resolveRole(ctx, identity)
	if err != nil {
		return nil, err
	}

	session := domainauth.Session{
		ID:                   generateSessionID(),
		UserID:               identity.UserID,
		FirstName:            identity.FirstName,
		LastName:             identity.LastName,
		Email:                identity.Email,
		Role:                 role,
		PendingRoleSelection: !role.Known(),
		ExpiresAt:            s.expiry(identity.ExpiresAt),
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.InfoContext(ctx, "login completed",
		"user_id", session.UserID,
		"role", session.Role.String(),
		"pending_role_selection", session.PendingRoleSelection,
	)
	return &CompleteLoginResult{Session: session}, nil
}

func (s *AuthService) resolveRole(ctx context.Context, identity domainauth.Identity) (domainauth.Role, error) {
	if s.profiles != nil {
		stored, err := s.profiles.GetRole(ctx, identity.UserID)
		if err != nil {
			return domainauth.RoleNone, fmt.Errorf("load profile role: %w", err)
		}
		if stored.Known() {
			return stored, nil
		}
	}
	if s.roles == nil {
		return domainauth.RoleNone, nil
	}
	return s.roles.Map(identity.Groups), nil
}

// expiry caps the session at SessionTTL when configured; otherwise the IdP expiry is used.
func (s *AuthService) expiry(idpExpiry time.Time) time.Time {
	if s.sessionTTL > 0 {
		return s.now().Add(s.sessionTTL)
	}
	if idpExpiry.IsZero() {
		return s.now().Add(time.Hour)
	}
	return idpExpiry
}

// GetSession retrieves a session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// SelectRole completes onboarding: the chosen role is persisted to the profile store
// and the session leaves the pending state.
func (s *AuthService) SelectRole(ctx context.Context, sessionID string, role domainauth.Role) (*domainauth.Session, error) {
	if !role.Selectable() {
		return nil, fmt.Errorf("%w: %q", ErrRoleNotSelectable, role)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.NeedsRoleSelection() {
		return nil, ErrRoleAlreadyAssigned
	}

	if s.profiles != nil {
		if setErr := s.profiles.SetRole(ctx, session.UserID, role); setErr != nil {
			return nil, fmt.Errorf("store profile role: %w", setErr)
		}
	}

	session.Role = role
	session.PendingRoleSelection = false
	if saveErr := s.sessions.Save(ctx, *session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	s.logger.InfoContext(ctx, "role selected", "user_id", session.UserID, "role", role.String())
	return session, nil
}

// Logout removes a session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// generateSessionID creates a random, URL-safe session ID.
func generateSessionID() string {
	return uuid.New().String()
}
