package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionBackend selects how portals read the shared session.
type SessionBackend string

const (
	// SessionBackendRedis resolves the session_id cookie against Redis.
	SessionBackendRedis SessionBackend = "redis"
	// SessionBackendJWT validates an HS256 access token issued by the identity platform.
	SessionBackendJWT SessionBackend = "jwt"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionBackend.
func (b *SessionBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "jwt":
		*b = SessionBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionBackend: %q (valid options: redis, jwt)", v)
	}
}

// SessionConfig controls the shared session.
type SessionConfig struct {
	Backend SessionBackend `env:"BACKEND" envDefault:"redis"`
	// TTL is the session lifetime granted at login and on sliding refresh. Zero keeps the IdP expiry.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
	// RefreshWindow extends a session when less than this remains before expiry.
	RefreshWindow time.Duration `env:"REFRESH_WINDOW" envDefault:"1h"`
	// ReadTimeout bounds every session read made by the access check.
	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"2s"`
	KeyPrefix   string        `env:"KEY_PREFIX" envDefault:"session:"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = SessionBackendRedis
	}
	if s.TTL < 0 {
		s.TTL = 0
	}
	if s.RefreshWindow < 0 || s.TTL == 0 {
		s.RefreshWindow = 0
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 2 * time.Second
	}
	if s.KeyPrefix = strings.TrimSpace(s.KeyPrefix); s.KeyPrefix == "" {
		s.KeyPrefix = "session:"
	}
}

// JWTConfig configures the token session backend.
type JWTConfig struct {
	Secret     string `env:"SECRET"`
	Issuer     string `env:"ISSUER"`
	Audience   string `env:"AUDIENCE"`
	CookieName string `env:"COOKIE_NAME" envDefault:"sb-access-token"`
	// RoleExpr and PendingExpr are JMESPath expressions evaluated against the token claims.
	// The role defaults to app_metadata.role; user-editable metadata is read only when named here.
	RoleExpr    string        `env:"ROLE_EXPR"`
	PendingExpr string        `env:"PENDING_EXPR"`
	Leeway      time.Duration `env:"LEEWAY" envDefault:"30s"`
}

// Sanitize trims JWT configuration values.
func (j *JWTConfig) Sanitize() {
	j.Secret = strings.TrimSpace(j.Secret)
	j.Issuer = strings.TrimSpace(j.Issuer)
	j.Audience = strings.TrimSpace(j.Audience)
	j.CookieName = strings.TrimSpace(j.CookieName)
	j.RoleExpr = strings.TrimSpace(j.RoleExpr)
	j.PendingExpr = strings.TrimSpace(j.PendingExpr)
	if j.Leeway < 0 {
		j.Leeway = 0
	}
}
