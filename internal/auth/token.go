// Package auth provides bearer-token issuance/verification and password
// hashing. It has no knowledge of HTTP or storage; the middleware and the
// auth service compose it.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// TokenIssuer mints and verifies signed bearer tokens (HS256).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. Tokens expire after ttl.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Mint returns a signed token whose subject is the given user id.
func (i *TokenIssuer) Mint(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth.TokenIssuer.Mint: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns the user id
// it was minted for. Any failure maps to domain.ErrNotAuthorized so callers
// need exactly one sentinel check.
func (i *TokenIssuer) Verify(raw string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth.TokenIssuer.Verify: %w: %v", domain.ErrNotAuthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth.TokenIssuer.Verify: %w: subject is not a user id", domain.ErrNotAuthorized)
	}
	return userID, nil
}
