// Package rest wires the development Graph Service HTTP API.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"crmgraph/infrastructure/config"
	"crmgraph/infrastructure/persistence/memory"
	"crmgraph/interfaces/http/rest/handlers"
	"crmgraph/interfaces/http/rest/middleware"
	"crmgraph/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	store  *memory.GraphStore
	cfg    *config.Config
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(store *memory.GraphStore, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		if rt.cfg.AuthEnabled {
			validator, err := auth.NewJWTValidator(auth.JWTConfig{
				SecretKey: rt.cfg.JWTSecret,
				Issuer:    rt.cfg.JWTIssuer,
			})
			if err != nil {
				rt.logger.Error("Failed to build JWT validator, rejecting all API requests", zap.Error(err))
				r.Use(rejectAll)
			} else {
				ipLimiter := auth.NewIPRateLimiter(rt.cfg.RateLimitPerMinute)
				r.Use(middleware.Authenticate(validator, ipLimiter, rt.logger))
			}
		}

		// Graph endpoint
		graphHandler := handlers.NewGraphHandler(rt.store, rt.logger)
		r.Get("/graph", graphHandler.GetGraph)

		// Edge endpoints
		r.Route("/edges", func(r chi.Router) {
			edgeHandler := handlers.NewEdgeHandler(rt.store, rt.logger)
			r.Post("/", edgeHandler.CreateEdge)
			r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// rejectAll denies every request; installed when auth is required but
// misconfigured.
func rejectAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authentication unavailable", http.StatusServiceUnavailable)
	})
}
