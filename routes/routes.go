package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/regit-contracts/regit/app"
	"github.com/regit-contracts/regit/handlers"
	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/middleware"
)

const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.MetricsMiddleware(deps.Metrics))
	r.Use(middleware.RequestInfo)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// Served here unless a dedicated metrics listener is configured
	if deps.Config.Observability.MetricsEnabled && deps.Config.Observability.MetricsPort == 0 {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	adminOnly := deps.AuthMiddleware.RequireRole(policy.RoleAdministrator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Use(deps.PrincipalMiddleware.ResolvePrincipal)

		contracts := deps.ContractHandler
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", contracts.HandleList)
			r.Post("/", contracts.HandleCreate)
			r.Get("/export", contracts.HandleExport)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", contracts.HandleGet)
				r.Put("/", contracts.HandleUpdate)
				r.Delete("/", contracts.HandleDelete)
				r.Post("/approve", contracts.HandleApprove)
				r.Post("/reject", contracts.HandleReject)
				r.Get("/history", contracts.HandleHistory)

				r.Route("/files", func(r chi.Router) {
					r.Get("/", contracts.HandleListFiles)
					r.Post("/", contracts.HandleUploadFile)
					r.Get("/{fileID}", contracts.HandleDownloadFile)
					r.Delete("/{fileID}", contracts.HandleDeleteFile)
				})
			})
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", deps.DepartmentHandler.HandleList)
			r.With(adminOnly).Post("/", deps.DepartmentHandler.HandleCreate)
		})

		// Audit logs (require admin role)
		r.Route("/audit", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/logs", deps.AuditHandler.HandleList)
			r.Get("/logs/{id}", deps.AuditHandler.HandleGet)
		})

		r.Get("/users/me", handlers.HandleCurrentUser)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
