// Package auth verifies bearer tokens issued by the PetConnect identity
// service. Verification only: this service never mints tokens, it trusts
// ES256 signatures made with the identity service's private key.
package auth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated caller extracted from a verified token.
// It is attached to the request context by the middleware.
type Principal struct {
	StaffID uuid.UUID
	Role    string
}

type contextKey int

const principalContextKey contextKey = iota

// PrincipalFromContext returns the authenticated principal, or nil for an
// unauthenticated request.
func PrincipalFromContext(ctx context.Context) *Principal {
	principal, _ := ctx.Value(principalContextKey).(*Principal)
	return principal
}

// ContextWithPrincipal attaches a principal to the context. Exposed for
// handler tests that bypass the middleware.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// Claims is the token body the identity service signs.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates ES256 bearer tokens against the identity service's
// public key.
type Verifier struct {
	publicKey *ecdsa.PublicKey
}

// NewVerifier parses the PEM-encoded ECDSA public key used to check token
// signatures.
func NewVerifier(publicKeyPEM string) (*Verifier, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not provided")
	}

	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT public key: %w", err)
	}

	return &Verifier{publicKey: publicKey}, nil
}

// Verify checks the token signature and expiry and returns the principal.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodES256 {
			return nil, errors.New("invalid signing method")
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !parsed.Valid {
		return nil, errors.New("token invalid")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("token expired")
	}

	staffID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	return &Principal{StaffID: staffID, Role: claims.Role}, nil
}
