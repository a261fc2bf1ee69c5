package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	// RedirectURL defaults to <web portal URL>/auth/callback.
	RedirectURL string `env:"REDIRECT_URL"`
	Scope       string `env:"SCOPE"         envDefault:"openid profile email"`
	// DiscoveryURL is the issuer URL or its /.well-known/openid-configuration document.
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// GroupsClaim is a JMESPath expression selecting group names from ID token claims.
	GroupsClaim string `env:"GROUPS_CLAIM"`
}

// Configured reports whether every field the OIDC provider needs is present.
func (o OAuthConfig) Configured() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.DiscoveryURL != ""
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string   `env:"USER_ID"    envDefault:"dev-user"`
	Email     string   `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string   `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string   `env:"LAST_NAME"  envDefault:"User"`
	Groups    []string `env:"GROUPS"     envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// IdP groups granting a role at login. Users in none of them pick a role during onboarding.
	PlatformAdminGroup string `env:"PLATFORM_ADMIN_GROUP" envDefault:"platform-admins"`
	CompanyAdminGroup  string `env:"COMPANY_ADMIN_GROUP"  envDefault:"company-admins"`
	DoctorGroup        string `env:"DOCTOR_GROUP"         envDefault:"doctors"`
	PatientGroup       string `env:"PATIENT_GROUP"`
}
