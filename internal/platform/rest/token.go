package rest

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer credential for each request. It is
// injected at client construction; nothing in this package reads tokens
// from ambient storage.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// TokenSourceFunc adapts a function to a TokenSource, for credentials
// renewed by an external login flow.
type TokenSourceFunc func() (string, error)

func (f TokenSourceFunc) Token() (string, error) { return f() }

// tokenExpired inspects a JWT-shaped bearer token locally and reports
// whether its exp claim is already in the past. The signature is not
// verified; the server remains the authority. Opaque tokens and tokens
// without an exp claim are never treated as expired.
func tokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
