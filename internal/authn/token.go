// Copyright 2025 LifeReady
//
// Package authn validates bearer tokens and assembles the CallerContext
// every core operation is gated on.
package authn

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/lifeready/core/internal/domain"
)

// Claims is the wire shape of the signed token.
type Claims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles"`
	Tiers   []string `json:"tiers"`
	Access  string   `json:"access"`
	Email   string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens signed with a shared HMAC-SHA256
// secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier. secret must be at least 32 bytes in
// production (enforced by internal/config's Config.Validate).
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates tokenString, returning the CallerContext it
// describes. An expired or malformed token yields an error; callers map
// that to 401.
func (v *Verifier) Verify(requestID, tokenString string) (domain.CallerContext, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.CallerContext{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return domain.CallerContext{}, fmt.Errorf("invalid token")
	}

	expiresAt := time.Time{}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, domain.Role(r))
	}

	tiers := make(map[domain.SensitivityTier]struct{}, len(claims.Tiers))
	for _, name := range claims.Tiers {
		if t, ok := domain.ParseTier(name); ok {
			tiers[t] = struct{}{}
		}
	}

	scopeList := domain.Scopes[domain.AccessLevel(claims.Access)]
	scopes := make(map[string]struct{}, len(scopeList))
	for _, s := range scopeList {
		scopes[s] = struct{}{}
	}

	return domain.CallerContext{
		RequestID:    requestID,
		PrincipalID:  claims.Subject,
		Roles:        roles,
		AllowedTiers: tiers,
		Scopes:       scopes,
		ExpiresAt:    expiresAt,
		Email:        claims.Email,
	}, nil
}

// Sign issues a token for the given claims, signed with the verifier's
// secret. Used by tests and local tooling to mint caller contexts; the
// production token issuer (login/MFA dialog) is an external collaborator.
func (v *Verifier) Sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
