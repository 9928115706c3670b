package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/beinus-auth/app"
	"github.com/upb/beinus-auth/internal/observability"
	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/utils"
)

// defaultRequestTimeout applies when the config leaves it unset
const defaultRequestTimeout = 30 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	timeout := deps.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware
	origins := deps.Config.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Every request not on the public list needs a valid access token
	r.Use(deps.AuthMiddleware.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// Token endpoints
	r.Post("/login", deps.AuthHandler.HandleLogin)
	r.Post("/join", deps.AuthHandler.HandleJoin)
	r.Post("/reissue", deps.AuthHandler.HandleReissue)
	r.Post("/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Get("/api/me", deps.UserHandler.HandleMe)

		r.With(deps.AuthMiddleware.RequireRole(models.RoleAdmin)).
			Get("/admin", deps.UserHandler.HandleAdmin)

		r.With(deps.AuthMiddleware.RequireRole(models.RoleAdmin, models.RoleUser)).
			Get("/my", deps.UserHandler.HandleMy)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "not_found", "endpoint not found", nil)
	})

	return r
}
