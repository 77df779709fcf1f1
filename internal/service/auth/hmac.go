package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/config"
	"github.com/phrazzld/gauge/internal/platform/logger"
)

// minSecretLength is the shortest HMAC secret accepted.
const minSecretLength = 32

// HMACValidator verifies and signs HS256 tokens with a shared secret.
type HMACValidator struct {
	signingKey []byte
	issuer     string
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration    // Allowed time difference for validation to handle clock drift
}

// jwtCustomClaims defines the structure of JWT claims we accept
type jwtCustomClaims struct {
	UserID string `json:"uid,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Ensure HMACValidator implements both interfaces
var (
	_ TokenValidator = (*HMACValidator)(nil)
	_ Signer         = (*HMACValidator)(nil)
)

// NewHMACValidator creates a validator for HS256 tokens signed with
// cfg.JWTSecret. When cfg.Issuer is set, tokens must carry a matching iss claim.
func NewHMACValidator(cfg config.AuthConfig) (*HMACValidator, error) {
	return newHMACValidator(cfg.JWTSecret, cfg.Issuer, time.Now)
}

func newHMACValidator(secret, issuer string, timeFunc func() time.Time) (*HMACValidator, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if timeFunc == nil {
		timeFunc = time.Now
	}
	return &HMACValidator{
		signingKey: []byte(secret),
		issuer:     issuer,
		timeFunc:   timeFunc,
		clockSkew:  2 * time.Minute,
	}, nil
}

// ValidateToken implements TokenValidator.ValidateToken
func (v *HMACValidator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := v.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var parsed jwtCustomClaims
	token, err := jwt.ParseWithClaims(
		tokenString,
		&parsed,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenMalformed):
			log.Debug("token validation failed: malformed token", "error", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			log.Debug("token validation failed: invalid signature", "error", err)
		default:
			log.Debug("token validation failed",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	rawID := parsed.UserID
	if rawID == "" {
		rawID = parsed.Subject
	}
	if rawID == "" {
		return nil, ErrMissingSubject
	}
	userID, err := uuid.Parse(rawID)
	if err != nil || userID == uuid.Nil {
		log.Debug("token validation failed: user id is not a uuid", "user_id", rawID)
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserID:  userID,
		Role:    parsed.Role,
		Issuer:  parsed.Issuer,
		Subject: parsed.Subject,
		ID:      parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

// SignToken implements Signer.SignToken
func (v *HMACValidator) SignToken(ctx context.Context, userID uuid.UUID, role string, lifetime time.Duration) (string, error) {
	log := logger.FromContext(ctx)
	if userID == uuid.Nil {
		return "", fmt.Errorf("cannot sign a token for the nil user")
	}
	if lifetime <= 0 {
		return "", fmt.Errorf("token lifetime must be positive, got %s", lifetime)
	}
	now := v.timeFunc()

	claims := jwtCustomClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.signingKey)
	if err != nil {
		log.Error("failed to sign token",
			"error", err,
			"user_id", userID,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}
	return signed, nil
}
