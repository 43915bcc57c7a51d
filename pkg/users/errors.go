package users

import "errors"

var (
	// ErrUserNotFound is returned when the requested user has no directory entry.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUserID is returned when a user ID does not meet naming requirements.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidRole is returned for roles other than admin and user.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidSeedFile is returned when a users file cannot be decoded.
	ErrInvalidSeedFile = errors.New("invalid users file")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")
)
