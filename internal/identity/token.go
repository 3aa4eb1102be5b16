package identity

import (
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/deskhq/desk-session/internal/domain"
)

// accessClaims is the subset of provider JWT claims the gateway reads.
type accessClaims struct {
	Email string `json:"email"`
}

var allowedAlgorithms = []gojose.SignatureAlgorithm{
	gojose.HS256, gojose.RS256, gojose.ES256,
}

// ParseAccessToken extracts identity and expiry from a provider access token
// without verifying the signature; the provider is the verification
// authority, the gateway only needs subject and expiry to scope a session.
func ParseAccessToken(raw string) (*domain.Session, error) {
	token, err := gojwt.ParseSigned(raw, allowedAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	var std gojwt.Claims
	var custom accessClaims
	if err := token.UnsafeClaimsWithoutVerification(&std, &custom); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	if std.Subject == "" {
		return nil, fmt.Errorf("access token has no subject")
	}

	var expiresAt time.Time
	if std.Expiry != nil {
		expiresAt = std.Expiry.Time()
	}

	return &domain.Session{
		AccessToken: raw,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        domain.User{ID: std.Subject, Email: custom.Email},
	}, nil
}
