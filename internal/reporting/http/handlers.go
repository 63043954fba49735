package reportinghttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
	"github.com/odyssey-erp/finreports/internal/platform/httpx"
	"github.com/odyssey-erp/finreports/internal/reporting"
	"github.com/odyssey-erp/finreports/internal/reporting/export"
	"github.com/odyssey-erp/finreports/internal/tenant"
	"github.com/odyssey-erp/finreports/jobs"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultTrendMonths    = 12
)

var errExportNotReady = errors.New("export not ready")

// SettingsService reads and replaces tenant settings.
type SettingsService interface {
	Settings(ctx context.Context, tenantID uuid.UUID) (tenant.Settings, error)
	Update(ctx context.Context, tenantID uuid.UUID, settings tenant.Settings) (tenant.Settings, error)
}

// ExportService queues exports and serves their results.
type ExportService interface {
	Submit(ctx context.Context, tenantID uuid.UUID, format export.Format, req export.Request) (jobs.ExportRecord, error)
	Status(ctx context.Context, tenantID, exportID uuid.UUID) (jobs.ExportRecord, error)
	Document(ctx context.Context, tenantID, exportID uuid.UUID) (jobs.ExportRecord, export.Document, error)
}

// Config collects the handler dependencies. Settings and Exports are optional; their routes are
// only mounted when present.
type Config struct {
	Logger          *slog.Logger
	Reports         export.Builder
	Settings        SettingsService
	Exports         ExportService
	ExportMetrics   *jobmetrics.Metrics
	ExportRateLimit int
	RequestTimeout  time.Duration
}

// Handler serves report, export and settings endpoints for a tenant.
type Handler struct {
	logger        *slog.Logger
	reports       export.Builder
	settings      SettingsService
	exports       ExportService
	exportMetrics *jobmetrics.Metrics
	exportLimit   int
	timeout       time.Duration
	validate      *validator.Validate
}

// NewHandler constructs the reporting HTTP handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	limit := cfg.ExportRateLimit
	if limit <= 0 {
		limit = 10
	}
	return &Handler{
		logger:        logger,
		reports:       cfg.Reports,
		settings:      cfg.Settings,
		exports:       cfg.Exports,
		exportMetrics: cfg.ExportMetrics,
		exportLimit:   limit,
		timeout:       timeout,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

type periodQuery struct {
	Start      string `validate:"required"`
	End        string `validate:"required"`
	Comparison string `validate:"omitempty,oneof=none previous_period previous_year"`
	Method     string `validate:"omitempty,oneof=direct indirect"`
}

type asOfQuery struct {
	AsOf       string `validate:"required"`
	Comparison string `validate:"omitempty,oneof=none previous_month previous_year"`
}

type trendQuery struct {
	Metric string `validate:"required"`
	Months int    `validate:"min=1"`
}

type exportBody struct {
	Report     string `json:"report" validate:"required"`
	Format     string `json:"format" validate:"required,oneof=csv xlsx"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	AsOf       string `json:"as_of,omitempty"`
	Comparison string `json:"comparison,omitempty"`
	Method     string `json:"method,omitempty"`
	Metric     string `json:"metric,omitempty"`
	Months     int    `json:"months,omitempty"`
}

// reportSlugs maps URL path segments onto report kinds.
var reportSlugs = map[string]string{
	"profit-loss":   reporting.KindProfitLoss,
	"balance-sheet": reporting.KindBalanceSheet,
	"cash-flow":     reporting.KindCashFlow,
	"trial-balance": reporting.KindTrialBalance,
	"trend":         reporting.KindTrend,
}

func (h *Handler) handleProfitLoss(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, reporting.KindProfitLoss)
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, reporting.KindBalanceSheet)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, reporting.KindCashFlow)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, reporting.KindTrialBalance)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	h.serveReport(w, r, reporting.KindTrend)
}

func (h *Handler) serveReport(w http.ResponseWriter, r *http.Request, kind string) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.requestFromQuery(r, kind)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := export.Build(ctx, h.reports, tenantID, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	kind, ok := reportSlugs[chi.URLParam(r, "report")]
	if !ok {
		h.respondError(w, r, fmt.Errorf("%w: unknown report %q", httpx.ErrNotFound, chi.URLParam(r, "report")))
		return
	}
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := h.requestFromQuery(r, kind)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := export.Build(ctx, h.reports, tenantID, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	doc, err := export.Render(kind, report, format)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.exportMetrics.RecordExport(kind, string(format), len(doc.Data))
	writeDocument(w, doc)
}

func (h *Handler) handleExportSubmit(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var body exportBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		h.respondError(w, r, err)
		return
	}
	if kind, ok := reportSlugs[body.Report]; ok {
		body.Report = kind
	}
	req := export.Request{
		Report:     body.Report,
		Start:      body.Start,
		End:        body.End,
		AsOf:       body.AsOf,
		Comparison: body.Comparison,
		Method:     body.Method,
		Metric:     body.Metric,
		Months:     body.Months,
	}
	if err := h.checkRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.exports.Submit(r.Context(), tenantID, export.Format(body.Format), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+rec.ID.String())
	httpx.JSON(w, http.StatusAccepted, rec)
}

func (h *Handler) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, exportID, err := exportFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.exports.Status(r.Context(), tenantID, exportID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleExportFile(w http.ResponseWriter, r *http.Request) {
	tenantID, exportID, err := exportFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, doc, err := h.exports.Document(r.Context(), tenantID, exportID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if rec.Status != jobs.ExportDone {
		h.respondError(w, r, fmt.Errorf("%w: %w (status %s)", httpx.ErrConflict, errExportNotReady, rec.Status))
		return
	}
	writeDocument(w, doc)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	settings, err := h.settings.Settings(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var settings tenant.Settings
	if err := httpx.DecodeJSON(r, &settings); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	saved, err := h.settings.Update(r.Context(), tenantID, settings)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

// requestFromQuery reads and validates the query parameters of kind.
func (h *Handler) requestFromQuery(r *http.Request, kind string) (export.Request, error) {
	q := r.URL.Query()
	req := export.Request{
		Report:     kind,
		Start:      q.Get("start"),
		End:        q.Get("end"),
		AsOf:       q.Get("as_of"),
		Comparison: q.Get("comparison"),
		Method:     q.Get("method"),
		Metric:     q.Get("metric"),
	}
	if kind == reporting.KindTrend {
		req.Months = defaultTrendMonths
		if raw := q.Get("months"); raw != "" {
			months, err := strconv.Atoi(raw)
			if err != nil {
				return export.Request{}, fmt.Errorf("%w: months must be an integer", httpx.ErrValidation)
			}
			req.Months = months
		}
	}
	return req, h.checkRequest(req)
}

func (h *Handler) checkRequest(req export.Request) error {
	switch req.Report {
	case reporting.KindProfitLoss:
		return h.validate.Struct(periodQuery{Start: req.Start, End: req.End, Comparison: req.Comparison})
	case reporting.KindCashFlow:
		return h.validate.Struct(periodQuery{Start: req.Start, End: req.End, Method: req.Method})
	case reporting.KindBalanceSheet:
		return h.validate.Struct(asOfQuery{AsOf: req.AsOf, Comparison: req.Comparison})
	case reporting.KindTrialBalance:
		return h.validate.Struct(asOfQuery{AsOf: req.AsOf})
	case reporting.KindTrend:
		return h.validate.Struct(trendQuery{Metric: req.Metric, Months: req.Months})
	}
	return fmt.Errorf("%w: %q", export.ErrUnsupportedReport, req.Report)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErrs validator.ValidationErrors
		ledgerErr      *reporting.LedgerSourceError
	)
	switch {
	case errors.As(err, &validationErrs):
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, describeValidation(validationErrs)))
	case reporting.IsInvalidInput(err),
		errors.Is(err, export.ErrUnsupportedReport),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, tenant.ErrInvalidSettings):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case errors.Is(err, tenant.ErrUnsupportedVersion):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
	case errors.Is(err, tenant.ErrNotFound), errors.Is(err, jobs.ErrExportNotFound):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrNotFound, err))
	case errors.Is(err, tenant.ErrConflict):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.As(err, &ledgerErr):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
	case errors.Is(err, reporting.ErrBuildCanceled):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrTimeout, err))
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrConflict):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("reporting request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func tenantFromRequest(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid tenant id", httpx.ErrValidation)
	}
	return id, nil
}

func exportFromRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	tenantID, err := tenantFromRequest(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	exportID, err := uuid.Parse(chi.URLParam(r, "exportID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: invalid export id", httpx.ErrValidation)
	}
	return tenantID, exportID, nil
}

func writeDocument(w http.ResponseWriter, doc export.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}
