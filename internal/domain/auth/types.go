package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role identifies which portal a user belongs to.
// Keep string form for easy persistence, cookies and token claims.
type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctor        Role = "doctor"
	RoleCompanyAdmin  Role = "company_admin"
	RolePlatformAdmin Role = "platform_admin"

	// RoleNone marks an absent role claim.
	RoleNone Role = ""
	// RoleUnknown marks a claim that was present but outside the closed role set.
	RoleUnknown Role = "unknown"
)

// Roles returns the closed role set in a stable order.
func Roles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleCompanyAdmin, RolePlatformAdmin}
}

// SelectableRoles are the roles a user may pick for themselves during onboarding.
func SelectableRoles() []Role {
	return []Role{RolePatient, RoleDoctor, RoleCompanyAdmin}
}

// ParseRole normalizes a raw role claim at the adapter boundary.
// Empty input yields RoleNone; values outside the closed set yield RoleUnknown.
func ParseRole(raw string) Role {
	v := Role(strings.ToLower(strings.TrimSpace(raw)))
	if v == RoleNone {
		return RoleNone
	}
	if v.Known() {
		return v
	}
	return RoleUnknown
}

// Known reports whether r is a member of the closed role set.
func (r Role) Known() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleCompanyAdmin, RolePlatformAdmin:
		return true
	default:
		return false
	}
}

// Selectable reports whether users may assign r to themselves.
func (r Role) Selectable() bool {
	for _, s := range SelectableRoles() {
		if s == r {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier shared by every portal through a domain cookie.
type Session struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	Email                string    `json:"email"`
	Role                 Role      `json:"role"`
	PendingRoleSelection bool      `json:"pending_role_selection"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// NeedsRoleSelection returns true when onboarding has not produced a usable role yet.
func (s Session) NeedsRoleSelection() bool {
	return s.PendingRoleSelection || !s.Role.Known()
}
