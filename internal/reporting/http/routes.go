// Package reportinghttp exposes the reporting engine over HTTP.
package reportinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/finreports/internal/platform/httpx"
)

// MountRoutes registers tenant-scoped reporting endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportLimit, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.RespondError(w, httpx.ErrRateLimited)
		}),
	)

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/reports/profit-loss", h.handleProfitLoss)
		r.Get("/reports/balance-sheet", h.handleBalanceSheet)
		r.Get("/reports/cash-flow", h.handleCashFlow)
		r.Get("/reports/trial-balance", h.handleTrialBalance)
		r.Get("/reports/trend", h.handleTrend)

		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/reports/{report}/export.{format}", h.handleExportDownload)
			if h.exports != nil {
				gr.Post("/exports", h.handleExportSubmit)
			}
		})
		if h.exports != nil {
			r.Get("/exports/{exportID}", h.handleExportStatus)
			r.Get("/exports/{exportID}/file", h.handleExportFile)
		}
		if h.settings != nil {
			r.Get("/settings", h.handleGetSettings)
			r.Put("/settings", h.handlePutSettings)
		}
	})
}

// rateLimitKey buckets export requests per tenant and client address.
func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "tenant:" + chi.URLParam(r, "tenantID") + ":ip:" + key, nil
}
