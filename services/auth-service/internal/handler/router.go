package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	authtypes "github.com/vasapolrittideah/account-verification-api/services/auth-service/pkg/types"
	"github.com/vasapolrittideah/account-verification-api/shared/auth"
	"github.com/vasapolrittideah/account-verification-api/shared/middleware"
)

// NewRouter mounts the auth routes along with /health and /metrics.
// /auth/me requires a session credential.
func NewRouter(h *AuthHTTPHandler, jwtAuth *auth.JWTAuthenticator, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimid.Recoverer)
	r.Use(middleware.Metrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Get("/verify-email", h.VerifyEmail)
		r.Get("/verify-email/{token}", h.VerifyEmail)
		r.Post("/resend-verification", h.ResendVerification)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJWT(jwtAuth, SessionCookieName, func() jwt.Claims {
				return &authtypes.SessionClaims{}
			}))
			r.Get("/me", h.Me)
		})
	})

	return r
}

// requestLogger logs the matched route rather than the raw path, which can
// carry a verification token.
func requestLogger(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", chimid.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("route", middleware.RoutePattern(r)).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
