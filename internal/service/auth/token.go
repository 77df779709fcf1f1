// Package auth verifies the bearer tokens that the host application issues
// to its users. Gauge never issues end-user tokens itself; Signer exists for
// operators and tests that need a token accepted by a running server.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	// ValidateToken checks the signature and time claims of tokenString and
	// extracts the caller's identity.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrMissingSubject or
	// ErrInvalidToken when the token is rejected.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Signer issues tokens that a TokenValidator with the same secret accepts.
type Signer interface {
	SignToken(ctx context.Context, userID uuid.UUID, role string, lifetime time.Duration) (string, error)
}

// Claims is the identity carried by a verified token.
type Claims struct {
	// UserID is the user the token was issued for, taken from the uid claim
	// or, when absent, from the subject.
	UserID uuid.UUID `json:"uid"`

	// Role is the caller's role in the host application. Admin routes compare
	// it to the configured admin role.
	Role string `json:"role,omitempty"`

	Issuer    string    `json:"iss,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	return c != nil && role != "" && c.Role == role
}
