package auth

import "errors"

// Errors returned by TokenValidator. The auth middleware answers 401 for all
// of them; only ErrExpiredToken gets its own message.
var (
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingSubject is returned for a well-signed token that names no user.
	ErrMissingSubject = errors.New("authentication token has no user")
)
