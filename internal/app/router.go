package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"groupman/internal/api"
	"groupman/internal/config"
	"groupman/internal/metrics"
	"groupman/internal/middleware"
)

// NewRouter assembles the HTTP surface. /healthz and /metrics are public; the
// /api routes require a bearer token and /api/admin the admin role. ctx bounds
// the rate limiter's background sweep.
func NewRouter(
	ctx context.Context,
	cfg *config.Config,
	handler *api.Handler,
	validator middleware.JWTValidator,
	gm *metrics.GroupMetrics,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", api.Health)
	if gm != nil {
		r.Handle("/metrics", gm.Handler())
	}

	limit := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
	mapping := middleware.ClaimMapping{NameClaim: cfg.Auth.NameClaim, RolesClaim: cfg.Auth.RolesClaim}

	r.Route("/api", func(r chi.Router) {
		if limit.Enabled() {
			r.Use(middleware.RateLimiter(ctx, limit))
		}
		r.Use(middleware.Authenticate(validator, mapping, logger))

		r.Route("/groups", handler.GroupRoutes)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(cfg.Groups.AdminRole))
			handler.AdminRoutes(r)
		})
	})
	return r
}
