package types

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are carried by the session credential set at login.
type SessionClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session is the credential handed to the caller after a successful login.
type Session struct {
	Token     string
	ExpiresIn int64 // seconds
}
