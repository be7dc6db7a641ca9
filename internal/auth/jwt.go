package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned for tokens without an exp claim.
var ErrNoExpiry = errors.New("auth: token has no expiry")

// AccessExpiry reads the exp claim of a bearer token without verifying its
// signature. The backend remains the authority on validity.
func AccessExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("auth: parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: read exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether token's exp lies before now. Unparsable tokens
// count as expired, tokens without exp never expire.
func Expired(token string, now time.Time) bool {
	exp, err := AccessExpiry(token)
	if errors.Is(err, ErrNoExpiry) {
		return false
	}
	if err != nil {
		return true
	}
	return !exp.After(now)
}
