package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/account-verification-api/services/auth-service/internal/usecase"
	authtypes "github.com/vasapolrittideah/account-verification-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/account-verification-api/shared/middleware"
	"github.com/vasapolrittideah/account-verification-api/shared/validator"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "token"

const maxBodyBytes = 1 << 20

// Event names recorded in the auth_events_total metric.
const (
	eventSignup      = "signup"
	eventLogin       = "login"
	eventVerifyEmail = "verify_email"
	eventResend      = "resend_verification"
	eventMe          = "me"

	outcomeSuccess = "success"
)

const (
	msgSignupSuccess     = "User registered successfully. Please check your email to verify your account."
	msgSignupEmailFailed = "User registered successfully, but the verification email could not be sent. Please request a new verification link."
	msgVerifySuccess     = "Email verified successfully. You can now log in."
	msgResendSuccess     = "A new verification link has been sent. Please check your email."
)

type AuthHTTPHandler struct {
	authUsecase    usecase.AuthUsecase
	validator      *validator.Validator
	authServiceCfg *config.AuthServiceConfig
	logger         *zerolog.Logger
}

func NewAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	validator *validator.Validator,
	authServiceCfg *config.AuthServiceConfig,
	logger *zerolog.Logger,
) *AuthHTTPHandler {
	return &AuthHTTPHandler{
		authUsecase:    authUsecase,
		validator:      validator,
		authServiceCfg: authServiceCfg,
		logger:         logger,
	}
}

func (h *AuthHTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authUsecase.Signup(r.Context(), usecase.SignupParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeUsecaseErr(w, err, eventSignup, "Signup failed")
		return
	}

	middleware.RecordAuthEvent(eventSignup, outcomeSuccess)

	resp := SignupResponse{Message: msgSignupSuccess, EmailSent: result.EmailSent}
	if !result.EmailSent {
		resp.Message = msgSignupEmailFailed
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeUsecaseErr(w, err, eventLogin, "Login failed")
		return
	}

	middleware.RecordAuthEvent(eventLogin, outcomeSuccess)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(session.ExpiresIn),
		HttpOnly: true,
		Secure:   h.authServiceCfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.authServiceCfg.LoginRedirectURL, http.StatusFound)
}

func (h *AuthHTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if _, err := h.authUsecase.VerifyEmail(r.Context(), token); err != nil {
		h.writeUsecaseErr(w, err, eventVerifyEmail, "Email verification failed")
		return
	}

	middleware.RecordAuthEvent(eventVerifyEmail, outcomeSuccess)
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgVerifySuccess})
}

func (h *AuthHTTPHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.authUsecase.ResendVerification(r.Context(), req.Email); err != nil {
		h.writeUsecaseErr(w, err, eventResend, "Resending verification email failed")
		return
	}

	middleware.RecordAuthEvent(eventResend, outcomeSuccess)
	writeJSON(w, http.StatusOK, MessageResponse{Message: msgResendSuccess})
}

func (h *AuthHTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	sessionClaims, isSession := claims.(*authtypes.SessionClaims)
	if !ok || !isSession {
		writeErr(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid session claims")
		return
	}

	user, err := h.authUsecase.CurrentUser(r.Context(), sessionClaims)
	if err != nil {
		h.writeUsecaseErr(w, err, eventMe, "Loading current user failed")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID.Hex(),
		Name:     user.Name,
		Email:    user.Email,
		Verified: user.Verified,
	})
}

// decode reads and validates a JSON body into dst, writing a 400 on failure.
func (h *AuthHTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error:  verr.Error(),
				Code:   ErrCodeInvalidRequest,
				Fields: verr.Fields,
			})
			return false
		}

		writeErr(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return false
	}

	return true
}

func (h *AuthHTTPHandler) writeUsecaseErr(w http.ResponseWriter, err error, event, failure string) {
	if c, ok := classify(err); ok {
		middleware.RecordAuthEvent(event, c.code)
		writeErr(w, c.status, c.code, c.message)
		return
	}

	middleware.RecordAuthEvent(event, ErrCodeInternal)
	h.logger.Error().Err(err).Msg(failure)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   failure,
		Code:    ErrCodeInternal,
		Details: err.Error(),
	})
}

func (h *AuthHTTPHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
