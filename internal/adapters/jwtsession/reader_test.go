package jwtsession

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret-of-reasonable-length")

func sign(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": "https://auth.example.com",
		"aud": "authenticated",
	}
}

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "https://patients.example.com/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func newReader(t *testing.T, mutate ...func(*Config)) *Reader {
	t.Helper()
	cfg := Config{Secret: testSecret, Issuer: "https://auth.example.com", Audience: "authenticated"}
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := NewReader(cfg)
	require.NoError(t, err)
	return r
}

func TestRead_RoleFromAppMetadata(t *testing.T) {
	claims := baseClaims()
	claims["app_metadata"] = map[string]any{"role": "doctor"}
	claims["user_metadata"] = map[string]any{"role": "patient"}

	got, err := newReader(t).Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.True(t, got.Session.Authenticated)
	assert.Equal(t, "user-1", got.Session.UserID)
	assert.Equal(t, domainauth.RoleDoctor, got.Session.Role)
	assert.False(t, got.Session.PendingRoleSelection)
}

func TestRead_UserMetadataRoleIsIgnored(t *testing.T) {
	claims := baseClaims()
	claims["app_metadata"] = map[string]any{"provider": "email"}
	claims["user_metadata"] = map[string]any{"role": "platform_admin"}

	got, err := newReader(t).Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.True(t, got.Session.Authenticated)
	assert.Equal(t, domainauth.RoleNone, got.Session.Role)

	reg, err := access.NewRegistry(access.RegistryConfig{BaseURL: "https://medportal.com"})
	require.NoError(t, err)
	d := access.NewDecider(reg, access.Production).
		Decide(got.Session, domainauth.RolePlatformAdmin, "/admin", "https://app.medportal.com/admin")
	assert.Equal(t, access.KindRedirectToRoleSelection, d.Kind)
}

func TestRead_UserMetadataFallbackIsOptIn(t *testing.T) {
	claims := baseClaims()
	claims["user_metadata"] = map[string]any{"role": "company_admin"}

	reader := newReader(t, func(c *Config) { c.RoleExpr = "app_metadata.role || user_metadata.role" })
	got, err := reader.Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleCompanyAdmin, got.Session.Role)
}

func TestRead_PendingAndMissingRole(t *testing.T) {
	claims := baseClaims()
	claims["user_metadata"] = map[string]any{"pending_role_selection": true}

	got, err := newReader(t).Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.True(t, got.Session.Authenticated)
	assert.Equal(t, domainauth.RoleNone, got.Session.Role)
	assert.True(t, got.Session.PendingRoleSelection)
}

func TestRead_UnknownRoleIsNormalized(t *testing.T) {
	claims := baseClaims()
	claims["app_metadata"] = map[string]any{"role": "nurse"}

	got, err := newReader(t).Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUnknown, got.Session.Role)

	claims["app_metadata"] = map[string]any{"role": []any{"doctor"}}
	got, err = newReader(t).Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUnknown, got.Session.Role)
}

func TestRead_CookieToken(t *testing.T) {
	claims := baseClaims()
	claims["app_metadata"] = map[string]any{"role": "patient"}

	r := httptest.NewRequest(http.MethodGet, "https://patients.example.com/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: sign(t, testSecret, claims)})

	got, err := newReader(t).Read(r)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RolePatient, got.Session.Role)
}

func TestRead_InvalidTokensAreAnonymous(t *testing.T) {
	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIssuer := baseClaims()
	wrongIssuer["iss"] = "https://evil.example.net"

	noSubject := baseClaims()
	delete(noSubject, "sub")

	noExpiry := baseClaims()
	delete(noExpiry, "exp")

	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": sign(t, []byte("another-secret-entirely-different"), baseClaims()),
		"expired":      sign(t, testSecret, expired),
		"wrong issuer": sign(t, testSecret, wrongIssuer),
		"no subject":   sign(t, testSecret, noSubject),
		"no expiry":    sign(t, testSecret, noExpiry),
	}
	reader := newReader(t)
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := reader.Read(bearer(tok))
			require.NoError(t, err)
			assert.False(t, got.Session.Authenticated)
		})
	}
}

func TestRead_NoTokenIsAnonymous(t *testing.T) {
	got, err := newReader(t).Read(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.False(t, got.Session.Authenticated)
	assert.Empty(t, got.Refreshed)
}

func TestRead_RejectsNoneAlgorithm(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	got, err := newReader(t).Read(bearer(tok))
	require.NoError(t, err)
	assert.False(t, got.Session.Authenticated)
}

func TestRead_CustomExpressions(t *testing.T) {
	claims := baseClaims()
	claims["portal_role"] = "doctor"
	claims["needs_role"] = "true"

	reader := newReader(t, func(c *Config) {
		c.RoleExpr = "portal_role"
		c.PendingExpr = "needs_role"
	})
	got, err := reader.Read(bearer(sign(t, testSecret, claims)))
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleDoctor, got.Session.Role)
	assert.True(t, got.Session.PendingRoleSelection)
}

func TestNewReader_Validation(t *testing.T) {
	_, err := NewReader(Config{})
	require.Error(t, err)

	_, err = NewReader(Config{Secret: testSecret, RoleExpr: "app_metadata.["})
	require.Error(t, err)

	r, err := NewReader(Config{Secret: testSecret})
	require.NoError(t, err)
	assert.NotNil(t, r.roleExp, "expressions are compiled once at construction")
	assert.NotNil(t, r.pendExp)
	assert.Equal(t, DefaultRoleExpr, r.cfg.RoleExpr)
}
