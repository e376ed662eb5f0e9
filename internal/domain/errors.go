package domain

import "errors"

var (
	// ErrDuplicateEmail is returned when registration hits the unique
	// email constraint.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a user lookup by ID misses.
	ErrUserNotFound = errors.New("user not found")
)
