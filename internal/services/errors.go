package services

import "errors"

var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrEmailTaken is returned when signing up with an email that already exists.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials indicates that provided login credentials are
	// incorrect. It deliberately does not say which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified is returned when a user logs in before verifying their email.
	ErrNotVerified = errors.New("email not verified")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenInvalid covers reset or verification tokens that fail signature,
	// expiry or stored-state checks.
	ErrTokenInvalid = errors.New("token is invalid or expired")
)
