package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when raw is not a decodable JWT.
var ErrMalformed = errors.New("malformed token")

// Metadata is the claim subset the session layer schedules around. Zero
// time values mean the claim was absent.
type Metadata struct {
	UserID    string
	Username  string
	Role      string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expires reports whether the token carries an exp claim.
func (m Metadata) Expires() bool {
	return !m.ExpiresAt.IsZero()
}

// ExpiredAt reports whether the token's exp claim has passed at now.
// Tokens without exp never report expired here.
func (m Metadata) ExpiredAt(now time.Time) bool {
	return m.Expires() && !now.Before(m.ExpiresAt)
}

// Parse decodes raw without verifying its signature and returns claim
// metadata. Claim validation (exp, nbf) is deliberately disabled: expired
// tokens must still parse so callers can classify them.
func Parse(raw string) (Metadata, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	meta := Metadata{
		Username:  stringClaim(claims, "username"),
		Role:      stringClaim(claims, "role"),
		TokenType: stringClaim(claims, "token_type"),
	}

	if uid := stringClaim(claims, "user_id"); uid != "" {
		meta.UserID = uid
	} else if n, ok := numberClaim(claims, "user_id"); ok {
		meta.UserID = fmt.Sprintf("%.0f", n)
	} else if sub, err := claims.GetSubject(); err == nil {
		meta.UserID = sub
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		meta.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		meta.IssuedAt = iat.Time
	}

	return meta, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, ok := claims[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func numberClaim(claims jwt.MapClaims, name string) (float64, bool) {
	v, ok := claims[name]
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}
