package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vasapolrittideah/account-verification-api/shared/auth"
)

type contextKey struct{}

var claimsKey = contextKey{}

var (
	errMissingCredential = errors.New("missing session credential")
	errMalformedHeader   = errors.New("invalid authorization header format")
)

// ClaimsFromContext returns the claims stored by RequireJWT.
func ClaimsFromContext(ctx context.Context) (jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(jwt.Claims)
	return claims, ok
}

// RequireJWT rejects requests that do not carry a valid token, either in the
// cookie named cookieName or as a bearer Authorization header. newClaims must
// return a fresh pointer for every call; the decoded value is placed in the
// request context.
func RequireJWT(
	jwtAuth *auth.JWTAuthenticator,
	cookieName string,
	newClaims func() jwt.Claims,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r, cookieName)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}

			claims := newClaims()
			if err := jwtAuth.Parse(tokenString, claims); err != nil {
				writeUnauthorized(w, "invalid session credential")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, cookieName string) (string, error) {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingCredential
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errMalformedHeader
	}

	return parts[1], nil
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "unauthorized"})
}
