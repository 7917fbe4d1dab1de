package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/v4vapp/bridge/internal/adapter/http/handler"
	"github.com/v4vapp/bridge/internal/adapter/http/middleware"
	"github.com/v4vapp/bridge/internal/usecase"
)

// RouterConfig holds dependencies for the admin-only HTTP surface (spec §3
// supplement). There is no authentication layer: the service binds to a
// private interface/VPN per the Non-goals, same as the operator policy
// snapshot it serves.
type RouterConfig struct {
	BalanceHandler    *handler.BalanceHandler
	TrackedOpHandler  *handler.TrackedOpHandler
	RebalanceHandler  *handler.RebalanceHandler
	PolicyHandler     *handler.PolicyHandler
	HealthHandler     *handler.HealthHandler
	LiveHandler       *handler.LiveHandler
	IdempotencyStore  usecase.IdempotencyStore
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for the one mutating endpoint (policy reload)
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Get("/accounts/{type}/{name}/{sub}/balance", cfg.BalanceHandler.Get)
		r.Get("/tracked-ops", cfg.TrackedOpHandler.List)
		r.Get("/pending-rebalances", cfg.RebalanceHandler.List)
		r.Get("/policy", cfg.PolicyHandler.Get)
		r.Post("/policy/reload", cfg.PolicyHandler.Reload)
		r.Get("/live", cfg.LiveHandler.Serve)
	})

	return r
}
