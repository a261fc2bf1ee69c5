package model

import (
	"time"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
)

// Profile is the durable onboarding record for a user.
// Role is RoleNone until the user completes role selection or an admin assigns one.
type Profile struct {
	UserID    string          `json:"user_id"`
	Role      domainauth.Role `json:"role,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasRole reports whether the profile carries a known role.
func (p Profile) HasRole() bool { return p.Role.Known() }
