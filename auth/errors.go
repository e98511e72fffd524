package auth

import "errors"

var (
	// ErrInvalidCredentials covers bad usernames, passwords, and tokens
	// alike; callers get no hint which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrLastAdmin is returned when an operation would remove the last
	// administrator.
	ErrLastAdmin = errors.New("cannot remove the last admin")

	// ErrSetupDone is returned from Setup once an admin exists.
	ErrSetupDone = errors.New("initial setup already completed")

	// ErrCapacity is returned when a bounded store is full.
	ErrCapacity = errors.New("store capacity exceeded")

	// ErrNotFound is returned for unknown identities and tokens.
	ErrNotFound = errors.New("not found")
)
