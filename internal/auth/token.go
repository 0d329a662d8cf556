// Package auth issues and verifies caller tokens. Tokens are HS256 JWTs whose
// subject is the user id.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "shopple"

var ErrEmptySubject = errors.New("auth: token has no subject")

// Tokens signs and verifies caller tokens with a shared secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Issue returns a token for uid valid for ttl.
func (t *Tokens) Issue(uid string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", ErrEmptySubject
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// ValidateToken returns the user id carried by token. Only HS256 is accepted.
func (t *Tokens) ValidateToken(_ context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("auth: invalid token")
	}
	if claims.Subject == "" {
		return "", ErrEmptySubject
	}
	return claims.Subject, nil
}
