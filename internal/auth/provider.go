// Package auth verifies and issues the HMAC-SHA256 bearer tokens the
// gateway authenticates callers with.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linkedout/api-gateway/internal/domain"
)

// minSecretBytes is the HMAC-SHA256 minimum key length.
const minSecretBytes = 32

// ErrMalformedClaims means a token validated but its claims cannot be mapped
// to a principal. The auth filter treats this the same as an invalid token.
var ErrMalformedClaims = errors.New("malformed token claims")

// TokenProvider validates tokens and extracts principals. It holds only the
// shared secret and the issuing validity window, so one instance is safe for
// concurrent use across all requests.
type TokenProvider struct {
	secret   []byte
	validity time.Duration
}

// NewTokenProvider creates a provider from the shared secret string. The
// secret's UTF-8 byte length must satisfy the HMAC-SHA256 minimum.
func NewTokenProvider(secret string, validity time.Duration) (*TokenProvider, error) {
	key := []byte(secret)
	if len(key) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", minSecretBytes, len(key))
	}
	return &TokenProvider{secret: key, validity: validity}, nil
}

// Validate reports whether token carries a valid HS256 signature and an
// expiry strictly in the future.
func (p *TokenProvider) Validate(token string) bool {
	_, err := p.parse(token)
	return err == nil
}

// Authenticate extracts the principal from a token. It must only be called
// after a successful Validate; any parsing failure here is mapped to
// ErrMalformedClaims.
func (p *TokenProvider) Authenticate(token string) (*domain.AuthPrincipal, error) {
	parsed, err := p.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedClaims
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrMalformedClaims)
	}

	principal := &domain.AuthPrincipal{
		AccountID: sub,
		Roles:     []string{},
	}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		principal.Name = name
	}
	if raw, ok := claims["roles"].([]any); ok {
		for _, r := range raw {
			if role, ok := r.(string); ok {
				principal.Roles = append(principal.Roles, role)
			}
		}
	}
	return principal, nil
}

// CreateToken issues a token for principal using the configured validity
// window. Used when the gateway itself hands out credentials.
func (p *TokenProvider) CreateToken(principal *domain.AuthPrincipal) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       principal.AccountID,
		"accountId": principal.AccountID,
		"exp":       now.Add(p.validity).Unix(),
		"iat":       now.Unix(),
		"roles":     principal.Roles,
	}
	if principal.Email != "" {
		claims["email"] = principal.Email
	}
	if principal.Name != "" {
		claims["name"] = principal.Name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *TokenProvider) parse(token string) (*jwt.Token, error) {
	return jwt.Parse(token,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return p.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
}
