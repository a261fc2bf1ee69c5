package access

import (
	"errors"
	"fmt"
	"strings"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
)

// Resolver is the part of the Registry the decision procedure depends on.
type Resolver interface {
	Resolve(role domainauth.Role, env Environment) (string, error)
	PortalFor(role domainauth.Role) (PortalID, bool)
}

var _ Resolver = (*Registry)(nil)

// Decider is the single source of truth for what happens to a protected request.
// It holds only immutable configuration and never performs I/O.
type Decider struct {
	resolver Resolver
	env      Environment
}

// NewDecider builds a Decider bound to a resolver and the current environment.
func NewDecider(resolver Resolver, env Environment) *Decider {
	return &Decider{resolver: resolver, env: env}
}

// Environment returns the environment the decider resolves URLs for.
func (d *Decider) Environment() Environment { return d.env }

// Decide maps a session snapshot to exactly one Decision.
//
// Order matters: unauthenticated first, then missing/pending role, then role mismatch.
// A pending user who hits a foreign portal is treated as pending, not mismatched.
func (d *Decider) Decide(s Session, expected domainauth.Role, requestedPath, requestedURL string) Decision {
	if !s.Authenticated {
		returnTo := requestedURL
		if returnTo == "" {
			returnTo = requestedPath
		}
		portal, _ := d.resolver.PortalFor(expected)
		return RedirectToLogin(returnTo, portal)
	}

	if s.Role == domainauth.RoleNone || s.PendingRoleSelection {
		return RedirectToRoleSelection()
	}

	if s.Role != expected {
		target, err := d.resolver.Resolve(s.Role, d.env)
		if err != nil {
			if !s.Role.Known() {
				return Error(FailureUnknownRole, fmt.Errorf("session role %q: %w", s.Role, err))
			}
			return Error(FailureRegistryResolution, err)
		}
		return RedirectToOwnPortal(target)
	}

	return Allow()
}

// DecideRead folds a Session Reader failure into the decision.
// A read error is never an Allow.
func (d *Decider) DecideRead(s Session, readErr error, expected domainauth.Role, requestedPath, requestedURL string) Decision {
	if readErr != nil {
		return Error(FailureSessionUnavailable, readErr)
	}
	return d.Decide(s, expected, requestedPath, requestedURL)
}

// ErrEmptyBaseURL is returned by RequestURL when no portal base URL is known.
var ErrEmptyBaseURL = errors.New("portal base URL is empty")

// RequestURL builds the fully-qualified URL of a request on a portal so a central
// login service on another subdomain can send the user back after authentication.
func RequestURL(baseURL, path, rawQuery string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "", ErrEmptyBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if rawQuery != "" {
		return base + path + "?" + rawQuery, nil
	}
	return base + path, nil
}
