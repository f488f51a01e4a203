package jwt

import (
	"errors"

	libJWT "github.com/golang-jwt/jwt/v5"
)

// HS256 verifies tokens signed with a shared secret.
type HS256 struct {
	secret []byte
	parser *libJWT.Parser
}

// NewHS256 builds an HS256 verifier.
func NewHS256(cfg Config) (*HS256, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSigningKeyTooShort
	}

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS256.Alg()}),
		libJWT.WithIssuedAt(),
		libJWT.WithExpirationRequired(),
		libJWT.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, libJWT.WithIssuer(cfg.Issuer))
	}
	if len(cfg.Audiences) > 0 {
		opts = append(opts, libJWT.WithAudience(cfg.Audiences...))
	}

	return &HS256{secret: cfg.Secret, parser: libJWT.NewParser(opts...)}, nil
}

// Verify parses and validates a JWT string.
func (h *HS256) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	token, err := h.parser.ParseWithClaims(tokenStr, &claims, func(t *libJWT.Token) (any, error) {
		if t.Method != libJWT.SigningMethodHS256 {
			return nil, ErrInvalidSigningMethod
		}
		return h.secret, nil
	})
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
