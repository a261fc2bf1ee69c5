package devauth

// Package devauth short-circuits the IdP for local development: Begin redirects straight
// back to the central callback and Exchange returns a configured identity.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
)

// DefaultCallbackPath is where the central web-app mounts its login callback.
const DefaultCallbackPath = "/auth/callback"

// Config controls the dev identity. Groups may be empty, which makes the
// login land in role selection unless a profile role is stored.
type Config struct {
	UserID          string
	Email           string
	FirstName       string
	LastName        string
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider without any network calls.
type Provider struct {
	identity        domainauth.Identity
	sessionDuration time.Duration
	now             func() time.Time
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur <= 0 {
		dur = 8 * time.Hour
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID:    cfg.UserID,
			Email:     cfg.Email,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Groups:    append([]string(nil), cfg.Groups...),
		},
		sessionDuration: dur,
		now:             time.Now,
	}, nil
}

// Begin points the browser at the callback with a fresh state.
// When in.RedirectURL is set it is used as the callback base instead of the relative path.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	state, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	callback := in.RedirectURL
	if callback == "" {
		callback = DefaultCallbackPath
	}
	q := url.Values{}
	q.Set("code", "dev")
	q.Set("state", state)
	return callback + "?" + q.Encode(), state, nonce, nil
}

// Exchange returns the configured identity with a fresh expiry.
// State and nonce validation happen in the handler.
func (p *Provider) Exchange(_ context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" {
		return domainauth.Identity{}, errors.New("authorization code is required")
	}
	id := p.identity
	id.Groups = append([]string(nil), p.identity.Groups...)
	id.ExpiresAt = p.now().Add(p.sessionDuration)
	return id, nil
}

func randomToken() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
