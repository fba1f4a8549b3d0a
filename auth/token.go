package auth

import (
	"chat-client/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of a JWT the client cares about.
// The signature is never verified here, only the server can do that.
type Claims struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes token without verifying it.
// ok is false for opaque tokens that are not JWTs.
func Inspect(token string) (Claims, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}

// CheckToken rejects tokens that cannot authenticate: empty ones, and JWTs
// whose expiration is already in the past. Opaque tokens are passed through.
func CheckToken(token string, now time.Time) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", errors.ErrInvalidCredentials)
	}
	claims, ok := Inspect(token)
	if !ok || claims.ExpiresAt == nil {
		return nil
	}
	if !claims.ExpiresAt.After(now) {
		return fmt.Errorf("%w: token expired at %s",
			errors.ErrInvalidCredentials, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// IdentityFromToken returns the e-mail, or the subject, carried by a JWT.
func IdentityFromToken(token string) string {
	claims, ok := Inspect(token)
	if !ok {
		return ""
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.Subject
}
