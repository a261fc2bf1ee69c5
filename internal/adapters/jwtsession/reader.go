// Package jwtsession reads portal sessions from signed access tokens issued by the
// identity backend, for deployments that do not keep server-side session records.
package jwtsession

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
)

const (
	// DefaultCookieName is the cookie the identity backend stores its access token in.
	DefaultCookieName = "sb-access-token"
	// DefaultRoleExpr locates the role claim. Only app metadata is trusted: user metadata
	// is editable by the user, so reading a role from it has to be configured explicitly.
	DefaultRoleExpr = "app_metadata.role"
	// DefaultPendingExpr locates the pending-role-selection flag. A user can only use it
	// to send themselves to role selection.
	DefaultPendingExpr = "user_metadata.pending_role_selection"
)

// Config configures a token Reader.
type Config struct {
	Secret      []byte
	Issuer      string
	Audience    string
	CookieName  string
	RoleExpr    string
	PendingExpr string
	Leeway      time.Duration
	Logger      *slog.Logger
}

// Reader implements ports.SessionReader over HS256 tokens.
type Reader struct {
	cfg     Config
	parser  *jwt.Parser
	roleExp jmespath.JMESPath
	pendExp jmespath.JMESPath
	logger  *slog.Logger
}

var _ ports.SessionReader = (*Reader)(nil)

// NewReader validates the configuration and compiles the claim expressions once.
func NewReader(cfg Config) (*Reader, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwtsession: secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if strings.TrimSpace(cfg.RoleExpr) == "" {
		cfg.RoleExpr = DefaultRoleExpr
	}
	if strings.TrimSpace(cfg.PendingExpr) == "" {
		cfg.PendingExpr = DefaultPendingExpr
	}
	roleExp, err := jmespath.Compile(cfg.RoleExpr)
	if err != nil {
		return nil, fmt.Errorf("jwtsession: role expression: %w", err)
	}
	pendExp, err := jmespath.Compile(cfg.PendingExpr)
	if err != nil {
		return nil, fmt.Errorf("jwtsession: pending expression: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reader{
		cfg:     cfg,
		parser:  jwt.NewParser(opts...),
		roleExp: roleExp,
		pendExp: pendExp,
		logger:  logger.With("component", "jwt_session_reader"),
	}, nil
}

// Read returns the session carried by the request's access token.
// Missing, malformed, expired or forged tokens yield an anonymous session.
func (r *Reader) Read(req *http.Request) (ports.SessionRead, error) {
	raw := tokenFromRequest(req, r.cfg.CookieName)
	if raw == "" {
		return ports.SessionRead{Session: access.Anonymous()}, nil
	}

	claims := jwt.MapClaims{}
	_, err := r.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.cfg.Secret, nil
	})
	if err != nil {
		r.logger.DebugContext(req.Context(), "rejecting access token", "error", err)
		return ports.SessionRead{Session: access.Anonymous()}, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return ports.SessionRead{Session: access.Anonymous()}, nil
	}

	data := map[string]any(claims)
	role, err := r.role(data)
	if err != nil {
		return ports.SessionRead{}, err
	}
	pending, err := r.pending(data)
	if err != nil {
		return ports.SessionRead{}, err
	}

	return ports.SessionRead{Session: access.Session{
		Authenticated:        true,
		UserID:               sub,
		Role:                 role,
		PendingRoleSelection: pending,
	}}, nil
}

func (r *Reader) role(claims map[string]any) (domainauth.Role, error) {
	v, err := r.roleExp.Search(claims)
	if err != nil {
		return domainauth.RoleNone, fmt.Errorf("evaluate role claim: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return domainauth.RoleNone, nil
	case string:
		return domainauth.ParseRole(t), nil
	default:
		return domainauth.RoleUnknown, nil
	}
}

func (r *Reader) pending(claims map[string]any) (bool, error) {
	v, err := r.pendExp.Search(claims)
	if err != nil {
		return false, fmt.Errorf("evaluate pending claim: %w", err)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, perr := strconv.ParseBool(strings.TrimSpace(t))
		return perr == nil && b, nil
	default:
		return false, nil
	}
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
