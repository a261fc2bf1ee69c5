package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrProfileNotFound is returned when no profile row exists for a user.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUserIDRequired is returned for an empty user ID.
	ErrUserIDRequired = errors.New("user_id is required")
	// ErrInvalidRole is returned when storing a role outside the closed role set.
	ErrInvalidRole = errors.New("invalid role")
)
