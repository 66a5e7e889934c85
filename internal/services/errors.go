package services

import "errors"

// Error kinds surfaced by the account services. Handlers map these to
// HTTP statuses; anything not matching one of them is a store failure.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("invalid input")

	// ErrAuthentication indicates an unknown email or a bad password.
	ErrAuthentication = errors.New("invalid credentials")

	// ErrInvalidToken indicates an expired, malformed, or wrong-kind
	// token, or a token whose subject no longer exists.
	ErrInvalidToken = errors.New("invalid token")

	// ErrDuplicateEmail indicates a registration attempt with an email
	// that is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)
