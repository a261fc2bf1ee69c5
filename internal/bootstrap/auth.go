package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/adapters/authroles"
	"github.com/medportal/portalgate/internal/adapters/devauth"
	"github.com/medportal/portalgate/internal/adapters/jwtsession"
	"github.com/medportal/portalgate/internal/adapters/oidc"
	redisadapter "github.com/medportal/portalgate/internal/adapters/redis"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/medportal/portalgate/internal/service"
	"github.com/redis/go-redis/v9"
)

// AuthConfig contains configuration for the central auth service.
type AuthConfig struct {
	Auth    config.AuthConfig
	Session config.SessionConfig
	// CallbackURL is used when OAUTH_REDIRECT_URL is not set.
	CallbackURL string
	Sessions    ports.SessionStore
	// Profiles is optional; nil keeps onboarding roles in the session only.
	Profiles ports.ProfileStore
	Logger   *slog.Logger
}

// NewSessionStore builds the Redis session store shared by every portal.
func NewSessionStore(client redis.UniversalClient, cfg config.SessionConfig) *redisadapter.SessionStore {
	return redisadapter.NewSessionStoreWithPrefix(client, cfg.KeyPrefix)
}

// BuildAuthService creates an auth service based on the configured auth mode.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*service.AuthService, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("auth service requires a session store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	roleMapper := authroles.StaticRoleMapper{
		PlatformAdminGroup: cfg.Auth.PlatformAdminGroup,
		CompanyAdminGroup:  cfg.Auth.CompanyAdminGroup,
		DoctorGroup:        cfg.Auth.DoctorGroup,
		PatientGroup:       cfg.Auth.PatientGroup,
	}

	var (
		prov ports.AuthProvider
		err  error
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		logger.Warn("dev auth enabled; every login signs in as the configured dev user",
			"user_id", cfg.Auth.DevAuth.UserID)
		prov, err = devauth.NewProvider(devauth.Config{
			UserID:    cfg.Auth.DevAuth.UserID,
			Email:     cfg.Auth.DevAuth.Email,
			FirstName: cfg.Auth.DevAuth.FirstName,
			LastName:  cfg.Auth.DevAuth.LastName,
			Groups:    cfg.Auth.DevAuth.Groups,
		})
	case config.AuthModeOAuth:
		prov, err = buildOIDCProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s auth provider: %w", cfg.Auth.Mode, err)
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:   prov,
		Sessions:   cfg.Sessions,
		Roles:      roleMapper,
		Profiles:   cfg.Profiles,
		SessionTTL: cfg.Session.TTL,
		Logger:     logger,
	}), nil
}

//nolint:ireturn // the provider is chosen at runtime.
func buildOIDCProvider(ctx context.Context, cfg AuthConfig) (ports.AuthProvider, error) {
	oauth := cfg.Auth.OAuth
	if !oauth.Configured() {
		return nil, fmt.Errorf("oauth requires OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET and OAUTH_DISCOVERY_URL "+
			"(discovery_url_empty=%t client_id_empty=%t client_secret_empty=%t)",
			oauth.DiscoveryURL == "", oauth.ClientID == "", oauth.ClientSecret == "")
	}
	redirect := oauth.RedirectURL
	if redirect == "" {
		redirect = cfg.CallbackURL
	}
	return oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  redirect,
		Scope:        oauth.Scope,
		IssuerURL:    oauth.DiscoveryURL,
		GroupsExpr:   oauth.GroupsClaim,
	})
}

// SessionReaderConfig contains what BuildSessionReader needs for either backend.
type SessionReaderConfig struct {
	Session      config.SessionConfig
	JWT          config.JWTConfig
	CookieDomain string
	// Sessions is required for the redis backend.
	Sessions ports.SessionStore
	Logger   *slog.Logger
}

// BuildSessionReader returns the reader portals use to resolve the caller's session.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildSessionReader(cfg SessionReaderConfig) (ports.SessionReader, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendJWT:
		return jwtsession.NewReader(jwtsession.Config{
			Secret:      []byte(cfg.JWT.Secret),
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			CookieName:  cfg.JWT.CookieName,
			RoleExpr:    cfg.JWT.RoleExpr,
			PendingExpr: cfg.JWT.PendingExpr,
			Leeway:      cfg.JWT.Leeway,
			Logger:      cfg.Logger,
		})
	case config.SessionBackendRedis, "":
		return redisadapter.NewSessionReader(redisadapter.SessionReaderConfig{
			Store:         cfg.Sessions,
			CookieDomain:  cfg.CookieDomain,
			TTL:           cfg.Session.TTL,
			RefreshWindow: cfg.Session.RefreshWindow,
			LoadTimeout:   cfg.Session.ReadTimeout,
			Logger:        cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Session.Backend)
	}
}
