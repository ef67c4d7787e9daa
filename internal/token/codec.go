// Package token signs and verifies the bearer tokens that carry a
// caller's identity between requests. Tokens are stateless: once issued
// they are trusted until their embedded expiry, with no server-side
// record.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Decode failure kinds. Callers surface different user-facing messages
// for the two, so they must stay distinguishable.
var (
	// ErrMalformed covers signature and structural failures.
	ErrMalformed = errors.New("invalid token")
	// ErrExpired means the signature verified but the validity window has elapsed.
	ErrExpired = errors.New("token has expired, please log in again")
)

// Claims is the payload embedded in a signed token.
type Claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Codec encodes claim sets into HS256-signed strings and decodes them
// back. The signing secret is fixed at construction and never mutated.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New constructs a Codec around a shared symmetric secret.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: secret must not be empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Encode signs a claims set valid for the given window starting now.
// Expiry is carried as a UTC epoch (RegisteredClaims), not a formatted
// local timestamp, so validity does not shift with the server timezone.
func (c *Codec) Encode(username string, isAdmin bool, validity time.Duration) (string, error) {
	if validity <= 0 {
		return "", errors.New("token: validity must be positive")
	}
	now := c.now().UTC()
	claims := Claims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature first, then the embedded expiry.
// Structural or cryptographic failures return ErrMalformed; a verified
// token past its expiry returns ErrExpired.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if claims.Username == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
