package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the JWT signing method is not supported.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrSigningKeyTooShort is returned when the HS256 key is less than 32 bytes.
	ErrSigningKeyTooShort = errors.New("HS256 signing key must be at least 32 bytes (256 bits)")

	// ErrTokenExpired is returned when the JWT token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(tokenStr string) (Claims, error)
}

type jwtContextKey struct{}

// Config defines the inputs for building a Verifier.
type Config struct {
	// Secret is the shared HMAC key.
	Secret []byte
	// Issuer is the expected "iss" claim.
	Issuer string
	// Audiences are the accepted "aud" values; empty disables the check.
	Audiences []string
	// Leeway tolerates clock skew between issuer and verifier.
	Leeway time.Duration
}

// Claims are the verified claims of a calling service.
type Claims struct {
	jwt.RegisteredClaims
	// Client optionally names the calling service when Subject is an opaque id.
	Client string `json:"client,omitempty"`
}

// Caller identifies the caller for logs and metrics.
func (c Claims) Caller() string {
	if c.Client != "" {
		return c.Client
	}
	return c.Subject
}

// GetAuth returns the JWT claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores JWT claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}
