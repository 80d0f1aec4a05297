package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/RegistryGo/internal/service"
	"github.com/utafrali/RegistryGo/pkg/health"
	"github.com/utafrali/RegistryGo/pkg/middleware"
)

// NewRouter creates a chi router with all registry routes registered.
func NewRouter(
	domainService *service.DomainService,
	transferService *service.TransferService,
	validate middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("registry"))
	r.Use(middleware.Tracing("registry"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	domainHandler := NewDomainHandler(domainService, logger)
	transferHandler := NewTransferHandler(transferService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Confirmation endpoints authenticate with the mailed verification
		// token instead of a registrar credential.
		r.Post("/domains/{name}/confirm-update", domainHandler.ConfirmUpdate)
		r.Post("/domains/{name}/confirm-delete", domainHandler.ConfirmDelete)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))

			r.Route("/domains", func(r chi.Router) {
				r.Post("/", domainHandler.CreateDomain)
				r.Get("/", domainHandler.ListDomains)
				r.Get("/check", domainHandler.CheckDomains)
				r.Get("/{name}", domainHandler.GetDomain)
				r.Patch("/{name}", domainHandler.UpdateDomain)
				r.Delete("/{name}", domainHandler.DeleteDomain)
				r.Post("/{name}/renew", domainHandler.RenewDomain)
				r.Post("/{name}/transfer", transferHandler.Transfer)

				// Registry operator override.
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole("admin"))
					r.Post("/{name}/force-delete", domainHandler.SetForceDelete)
					r.Delete("/{name}/force-delete", domainHandler.UnsetForceDelete)
				})
			})

			// Registrar message queue.
			r.Get("/messages", transferHandler.PollMessage)
			r.Delete("/messages/{id}", transferHandler.AckMessage)
		})
	})

	return r
}
