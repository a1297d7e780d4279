package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modelbridge/searchsync/internal/service"
	"github.com/modelbridge/searchsync/pkg/health"
	"github.com/modelbridge/searchsync/pkg/middleware"
)

// NewRouter creates a chi router with all service routes registered.
func NewRouter(
	syncService *service.SyncService,
	healthHandler *health.Handler,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("searchsync"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("searchsync"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Search API endpoints
	searchHandler := NewSearchHandler(syncService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Get("/", searchHandler.Search)

		// Body-carrying endpoints require a JSON content type.
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/index", searchHandler.IndexProduct)
			r.Post("/bulk", searchHandler.BulkIndex)
		})

		// Admin endpoints take no request body.
		r.Post("/reindex", searchHandler.Reindex)
		r.Post("/flush", searchHandler.Flush)
		r.Post("/schema", searchHandler.CreateIndex)
		r.Post("/schema/regen", searchHandler.RegenIndex)
		r.Delete("/schema", searchHandler.DropIndex)
		r.Delete("/{id}", searchHandler.DeleteProduct)
	})

	return r
}
