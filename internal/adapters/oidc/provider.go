package oidc

// Package oidc connects the central login service to an OpenID Connect identity provider.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
	"golang.org/x/oauth2"
)

// DefaultGroupsExpr covers the common places IdPs put group or role membership.
const DefaultGroupsExpr = "groups || roles || realm_access.roles"

// Provider implements ports.AuthProvider with the authorization code flow.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	groupsExpr jmespath.JMESPath

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	// IssuerURL may be the issuer or its /.well-known/openid-configuration document.
	IssuerURL string
	// GroupsExpr is a JMESPath expression selecting group names from ID token claims.
	GroupsExpr string
	HTTPClient *http.Client
}

// DiscoveryDocument is the subset of the discovery document go-oidc needs.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider performs discovery and builds the OAuth2 client.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.IssuerURL == "":
		return nil, errors.New("issuer URL is required")
	}

	groupsExpr := strings.TrimSpace(cfg.GroupsExpr)
	if groupsExpr == "" {
		groupsExpr = DefaultGroupsExpr
	}
	compiledGroups, err := jmespath.Compile(groupsExpr)
	if err != nil {
		return nil, fmt.Errorf("groups expression: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "profile", "email"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		groupsExpr:   compiledGroups,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// Begin returns the IdP authorization URL with a fresh state and nonce.
// The redirect_uri stays the configured one; in.RedirectURL only has to be present.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state, gooidc.Nonce(nonce))
	return authURL, state, nonce, nil
}

// Exchange redeems the code, verifies the ID token and nonce, and maps the claims.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := idTokenFrom(token)
	if err != nil {
		return domainauth.Identity{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != in.Nonce {
		return domainauth.Identity{}, errors.New("invalid nonce")
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}

	id, err := p.identityFromClaims(claims)
	if err != nil {
		return domainauth.Identity{}, err
	}
	id.ExpiresAt = idTok.Expiry
	if id.ExpiresAt.IsZero() {
		id.ExpiresAt = time.Now().Add(time.Hour)
	}
	return id, nil
}

func (p *Provider) identityFromClaims(claims map[string]any) (domainauth.Identity, error) {
	groups, err := extractGroups(p.groupsExpr, claims)
	if err != nil {
		return domainauth.Identity{}, err
	}
	id := domainauth.Identity{
		UserID:    stringClaim(claims, "sub"),
		FirstName: stringClaim(claims, "given_name"),
		LastName:  stringClaim(claims, "family_name"),
		Email:     stringClaim(claims, "email"),
		Groups:    groups,
	}
	if id.UserID == "" {
		return domainauth.Identity{}, errors.New("id_token has no subject")
	}
	return id, nil
}

func extractGroups(expr jmespath.JMESPath, claims map[string]any) ([]string, error) {
	v, err := expr.Search(claims)
	if err != nil {
		return nil, fmt.Errorf("evaluate groups claim: %w", err)
	}
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, g := range t {
			if s, ok := g.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func idTokenFrom(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// randomToken returns n URL-safe characters from crypto/rand.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
