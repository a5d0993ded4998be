/**
 * @description
 * This file sets up the HTTP router for the kiosk service. It defines the API
 * endpoints, associates them with their handlers and applies middleware for
 * authentication, CORS, audit metadata and rate limiting.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for the single-page frontend.
 */

package api

import (
	"net/http"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/app"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/config"
	"github.com/JosePanoy/Web-App-Shoe-Vendo/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	adminLoginScope     = "admin_login"
	forgotPinStartScope = "forgot_pin_start"
	forgotPinResetScope = "forgot_pin_reset"
)

// NewRouter creates the chi router and registers every kiosk route. limiter may be nil.
func NewRouter(h *Handlers, tokens *app.TokenIssuer, limiter app.RateLimiter, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(RequestMetaMiddleware)

	// The stream is long-lived and must not inherit the route timeout.
	r.With(AuthMiddleware(tokens)).Get("/api/machine/stream", h.MachineStreamHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check endpoint
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("healthy"))
		})

		limit := cfg.RecoveryRateLimitPerMinute

		r.With(RateLimitMiddleware(limiter, adminLoginScope, limit)).Post("/api/auth/login", h.AdminLoginHandler)
		r.Post("/api/auth/athlete/login", h.LoginHandler)
		r.Post("/api/auth/change-pincode", h.ChangePinHandler)
		r.Post("/api/athletes/onboard", h.OnboardHandler)

		r.With(RateLimitMiddleware(limiter, forgotPinStartScope, limit)).Post("/api/athletes/forgot-pin/start", h.ForgotPinStartHandler)
		r.With(RateLimitMiddleware(limiter, forgotPinResetScope, limit)).Post("/api/athletes/forgot-pin/reset", h.ForgotPinResetHandler)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))

			r.With(RequireRole(domain.RoleAdmin)).Post("/api/athletes/register", h.RegisterAthleteHandler)
			r.With(RequireRole(domain.RoleAthlete)).Post("/api/auth/athlete/logout", h.LogoutHandler)

			r.Post("/api/service/request", h.ServiceRequestHandler)
			r.Get("/api/service/status/{id}", h.ServiceStatusHandler)
			r.Post("/api/service/complete/{id}", h.ServiceCompleteHandler)
			r.Get("/api/machine/status", h.MachineStatusHandler)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(InternalAuthMiddleware(cfg.InternalAPIKey))
			r.Post("/machine/state", h.RecordMachineStateHandler)
		})
	})

	return r
}
