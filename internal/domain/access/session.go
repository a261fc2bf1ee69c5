package access

import domainauth "github.com/medportal/portalgate/internal/domain/auth"

// Session is the read-only snapshot a Session Reader hands to the decision procedure.
// Role is meaningful only when Authenticated is true and PendingRoleSelection is false.
type Session struct {
	Authenticated        bool
	UserID               string
	Role                 domainauth.Role
	PendingRoleSelection bool
}

// Anonymous is the snapshot for a request that carries no usable credentials.
func Anonymous() Session { return Session{} }

// FromRecord converts a stored session record into a snapshot.
func FromRecord(rec domainauth.Session) Session {
	return Session{
		Authenticated:        rec.UserID != "",
		UserID:               rec.UserID,
		Role:                 domainauth.ParseRole(string(rec.Role)),
		PendingRoleSelection: rec.PendingRoleSelection,
	}
}

// HasRole reports whether the snapshot carries a completed, known role.
func (s Session) HasRole() bool {
	return s.Authenticated && !s.PendingRoleSelection && s.Role.Known()
}
