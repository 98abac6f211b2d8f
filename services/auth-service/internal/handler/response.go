package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/usecase"
)

// Error codes returned in the "code" field of error bodies.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeConflict           = "conflict"
	ErrCodeAlreadyVerified    = "already_verified"
	ErrCodeUserNotFound       = "user_not_found"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeNotVerified        = "not_verified"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeInternal           = "internal_error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	Fields  any    `json:"fields,omitempty"`
}

// classifiedError is the HTTP rendering of a usecase error.
type classifiedError struct {
	status  int
	code    string
	message string
}

// classify maps usecase errors onto status codes. ok is false for
// infrastructure failures, which the caller reports as 500.
func classify(err error) (classifiedError, bool) {
	switch {
	case errors.Is(err, usecase.ErrUserAlreadyExists):
		return classifiedError{http.StatusConflict, ErrCodeConflict, "User already exists"}, true
	case errors.Is(err, usecase.ErrUserAlreadyVerified):
		return classifiedError{http.StatusConflict, ErrCodeAlreadyVerified, "Account already verified"}, true
	case errors.Is(err, usecase.ErrUserNotFound):
		return classifiedError{http.StatusNotFound, ErrCodeUserNotFound, "User not found"}, true
	case errors.Is(err, usecase.ErrInvalidVerificationToken):
		return classifiedError{http.StatusBadRequest, ErrCodeInvalidToken, "Invalid or expired token"}, true
	case errors.Is(err, usecase.ErrUserNotVerified):
		return classifiedError{
			http.StatusForbidden, ErrCodeNotVerified, "Account not verified. Please check your email.",
		}, true
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return classifiedError{http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials"}, true
	case errors.Is(err, usecase.ErrSessionNotFound):
		return classifiedError{http.StatusUnauthorized, ErrCodeUnauthorized, "Session not found"}, true
	default:
		return classifiedError{}, false
	}
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
