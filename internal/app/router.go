package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/finreports/internal/observability"
	"github.com/odyssey-erp/finreports/internal/platform/httpx"
	reportinghttp "github.com/odyssey-erp/finreports/internal/reporting/http"
	"github.com/odyssey-erp/finreports/jobs"
)

// ReadinessCheck checks one dependency.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Metrics       *observability.Metrics
	ReportHandler *reportinghttp.Handler
	JobHandler    *jobs.Handler
	Readiness     map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Logger, params.Readiness))

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.ReportHandler != nil {
		r.Route("/api/v1", params.ReportHandler.MountRoutes)
	}

	return r
}

func readinessHandler(logger *slog.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = "unavailable"
				if logger != nil {
					logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				}
				continue
			}
			result[name] = "ok"
		}
		httpx.JSON(w, status, result)
	}
}
