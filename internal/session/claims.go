package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when claims are requested for an anonymous session.
var ErrNoToken = errors.New("no session token")

// Claims is the part of the access token the client cares about. The token
// is parsed without verification; the server stays authoritative.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// ParseClaims decodes a JWT access token without checking its signature.
func ParseClaims(token string) (*Claims, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Expired reports whether the token carries an expiry that has passed.
// Tokens without an expiry never expire locally.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ttlFor returns how long a backend should keep token. ok is false when the
// token has already expired and should not be stored at all.
func ttlFor(token string, def time.Duration, now time.Time) (ttl time.Duration, ok bool) {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return def, true
	}
	if ttl := claims.ExpiresAt.Sub(now); ttl > 0 {
		return ttl, true
	}
	return 0, false
}
