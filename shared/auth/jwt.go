package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails signature or claim validation.
var ErrInvalidToken = errors.New("invalid token")

// JWTAuthenticator signs and validates HS256 tokens for a single issuer/audience pair.
type JWTAuthenticator struct {
	secret   []byte
	audience string
	issuer   string
}

// NewJWTAuthenticator creates a new JWTAuthenticator instance.
func NewJWTAuthenticator(secret, audience, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
	}
}

// Issuer returns the issuer placed in and required from every token.
func (a *JWTAuthenticator) Issuer() string {
	return a.issuer
}

// Audience returns the audience placed in and required from every token.
func (a *JWTAuthenticator) Audience() string {
	return a.audience
}

// Sign signs the given claims. Callers are expected to fill in the registered
// claims using Issuer and Audience so that Parse accepts the result.
func (a *JWTAuthenticator) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenStr, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenStr, nil
}

// Parse validates tokenString and decodes it into claims, which must be a pointer
// to a type implementing jwt.Claims.
func (a *JWTAuthenticator) Parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return a.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(a.audience),
		jwt.WithIssuer(a.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}
