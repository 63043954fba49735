package reportinghttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/ledger"
	"github.com/odyssey-erp/finreports/internal/platform/httpx"
	"github.com/odyssey-erp/finreports/internal/reporting"
	"github.com/odyssey-erp/finreports/internal/reporting/export"
	"github.com/odyssey-erp/finreports/internal/tenant"
	"github.com/odyssey-erp/finreports/jobs"
)

var testTenant = uuid.MustParse("0d5b2a3e-7f7c-4b55-9a4e-2f8c1f1b6a20")

func dec(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func date(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(src ledger.Source) *reporting.Engine {
	return reporting.NewEngine(src, reporting.Options{
		Logger: quietLogger(),
		Now:    func() time.Time { return time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC) },
	})
}

func januarySource() *ledger.MemorySource {
	return ledger.NewMemorySource().
		AddInvoices(testTenant, ledger.InvoiceFact{ID: uuid.New(), Total: dec("1000.00"), PaidAmount: dec("1000.00"), Status: ledger.InvoicePaid, Date: date("2025-01-10")}).
		AddExpenses(testTenant, ledger.ExpenseFact{ID: uuid.New(), Amount: dec("250.00"), Category: ledger.CategoryRent, Date: date("2025-01-05"), Status: ledger.ExpensePaid}).
		AddPayments(testTenant, ledger.PaymentFact{ID: uuid.New(), Amount: dec("1000.00"), Date: date("2025-01-12"), Direction: ledger.Inflow, Category: ledger.PaymentCustomer})
}

type stubSettings struct {
	settings tenant.Settings
	err      error
	updated  *tenant.Settings
}

func (s *stubSettings) Settings(context.Context, uuid.UUID) (tenant.Settings, error) {
	return s.settings, s.err
}

func (s *stubSettings) Update(_ context.Context, tenantID uuid.UUID, settings tenant.Settings) (tenant.Settings, error) {
	if s.err != nil {
		return tenant.Settings{}, s.err
	}
	settings.TenantID = tenantID
	s.updated = &settings
	return settings, nil
}

type stubExports struct {
	submitted []export.Request
	record    jobs.ExportRecord
	doc       export.Document
	err       error
}

func (s *stubExports) Submit(_ context.Context, tenantID uuid.UUID, format export.Format, req export.Request) (jobs.ExportRecord, error) {
	if s.err != nil {
		return jobs.ExportRecord{}, s.err
	}
	s.submitted = append(s.submitted, req)
	return jobs.ExportRecord{ID: uuid.New(), TenantID: tenantID, Report: req.Report, Format: format, Params: req, Status: jobs.ExportPending}, nil
}

func (s *stubExports) Status(context.Context, uuid.UUID, uuid.UUID) (jobs.ExportRecord, error) {
	return s.record, s.err
}

func (s *stubExports) Document(context.Context, uuid.UUID, uuid.UUID) (jobs.ExportRecord, export.Document, error) {
	return s.record, s.doc, s.err
}

func newTestRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	r := chi.NewRouter()
	NewHandler(cfg).MountRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tenantPath(suffix string) string {
	return "/tenants/" + testTenant.String() + suffix
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestProfitLossEndpoint(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})

	rec := doRequest(t, router, http.MethodGet, tenantPath("/reports/profit-loss?start=2025-01-01&end=2025-01-31"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Revenue struct {
			Total struct {
				Amount string `json:"amount"`
			} `json:"total"`
		} `json:"revenue"`
		NetIncome struct {
			Amount struct {
				Amount string `json:"amount"`
			} `json:"amount"`
		} `json:"net_income"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1000.00", body.Revenue.Total.Amount)
	assert.Equal(t, "750.00", body.NetIncome.Amount.Amount)
}

func TestReportEndpointsRejectBadInput(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})
	cases := []struct {
		name string
		path string
	}{
		{"missing end", "/reports/profit-loss?start=2025-01-01"},
		{"inverted period", "/reports/profit-loss?start=2025-02-01&end=2025-01-01"},
		{"bad date", "/reports/balance-sheet?as_of=yesterday"},
		{"mode not offered for balance sheet", "/reports/balance-sheet?as_of=2025-01-31&comparison=previous_period"},
		{"unknown cash flow method", "/reports/cash-flow?start=2025-01-01&end=2025-01-31&method=magic"},
		{"unknown trend metric", "/reports/trend?metric=ebitda"},
		{"trend window too large", "/reports/trend?metric=revenue&months=61"},
		{"non-numeric months", "/reports/trend?metric=revenue&months=six"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tenantPath(tc.path), "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, http.StatusBadRequest, problemOf(t, rec).Status)
		})
	}
}

func TestInvalidTenantID(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})
	rec := doRequest(t, router, http.MethodGet, "/tenants/not-a-uuid/reports/trial-balance?as_of=2025-01-31", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenSource struct{ ledger.Source }

func (brokenSource) Payments(context.Context, uuid.UUID, ledger.DateRange) ([]ledger.PaymentFact, error) {
	return nil, errors.New("connection refused")
}

func TestLedgerFailureMapsToBadGateway(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(brokenSource{Source: januarySource()})})
	rec := doRequest(t, router, http.MethodGet, tenantPath("/reports/cash-flow?start=2025-01-01&end=2025-01-31"), "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestTrendEndpointDefaultsToTwelveMonths(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})
	rec := doRequest(t, router, http.MethodGet, tenantPath("/reports/trend?metric=revenue"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var points []reporting.TrendPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 12)
	assert.Equal(t, "2024-04", points[0].PeriodLabel)
	assert.Equal(t, "2025-03", points[11].PeriodLabel)
}

func TestSynchronousCSVExport(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})
	rec := doRequest(t, router, http.MethodGet, tenantPath("/reports/profit-loss/export.csv?start=2025-01-01&end=2025-01-31"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="profit_loss.csv"`)

	reader := csv.NewReader(bytes.NewReader(rec.Body.Bytes()))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Contains(t, records, []string{"Net Income", "750.00"})
}

func TestExportUnknownReportOrFormat(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource())})

	rec := doRequest(t, router, http.MethodGet, tenantPath("/reports/general-ledger/export.csv"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, tenantPath("/reports/trial-balance/export.pdf?as_of=2025-01-31"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportRateLimit(t *testing.T) {
	router := newTestRouter(Config{Reports: testEngine(januarySource()), ExportRateLimit: 2})
	path := tenantPath("/reports/trial-balance/export.csv?as_of=2025-01-31")

	for i := 0; i < 2; i++ {
		rec := doRequest(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(t, router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doRequest(t, router, http.MethodGet, tenantPath("/reports/trial-balance?as_of=2025-01-31"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAsyncExportSubmit(t *testing.T) {
	exports := &stubExports{}
	router := newTestRouter(Config{Reports: testEngine(januarySource()), Exports: exports})

	rec := doRequest(t, router, http.MethodPost, tenantPath("/exports"),
		`{"report":"balance-sheet","format":"xlsx","as_of":"2025-01-31","comparison":"previous_month"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, exports.submitted, 1)
	assert.Equal(t, reporting.KindBalanceSheet, exports.submitted[0].Report)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), tenantPath("/exports/")))

	var record jobs.ExportRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, jobs.ExportPending, record.Status)
}

func TestAsyncExportSubmitValidatesBeforeQueueing(t *testing.T) {
	exports := &stubExports{}
	router := newTestRouter(Config{Reports: testEngine(januarySource()), Exports: exports})

	for _, body := range []string{
		`{"report":"trial_balance","format":"pdf","as_of":"2025-01-31"}`,
		`{"report":"trial_balance","format":"csv"}`,
		`{"report":"trial_balance","format":"csv","as_of":"2025-01-31","colour":"red"}`,
		`{"report":"journal","format":"csv"}`,
	} {
		rec := doRequest(t, router, http.MethodPost, tenantPath("/exports"), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, exports.submitted)
}

func TestAsyncExportStatusAndFile(t *testing.T) {
	exportID := uuid.New()
	exports := &stubExports{record: jobs.ExportRecord{ID: exportID, TenantID: testTenant, Status: jobs.ExportRunning}}
	router := newTestRouter(Config{Reports: testEngine(januarySource()), Exports: exports})

	rec := doRequest(t, router, http.MethodGet, tenantPath("/exports/"+exportID.String()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, tenantPath("/exports/"+exportID.String()+"/file"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	exports.record.Status = jobs.ExportDone
	exports.doc = export.Document{Filename: "trend.csv", ContentType: "text/csv", Data: []byte("Trend\n")}
	rec = doRequest(t, router, http.MethodGet, tenantPath("/exports/"+exportID.String()+"/file"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trend\n", rec.Body.String())

	exports.err = jobs.ErrExportNotFound
	rec = doRequest(t, router, http.MethodGet, tenantPath("/exports/"+exportID.String()), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	settings := &stubSettings{settings: tenant.Settings{TenantID: testTenant, Version: tenant.CurrentVersion}}
	router := newTestRouter(Config{Reports: testEngine(januarySource()), Settings: settings})

	rec := doRequest(t, router, http.MethodGet, tenantPath("/settings"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPut, tenantPath("/settings"), `{"version":1,"reporting":{"currency":"EUR"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, settings.updated)
	assert.Equal(t, "EUR", settings.updated.Reporting.Currency)
	assert.Equal(t, testTenant, settings.updated.TenantID)
}

func TestSettingsErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{tenant.ErrNotFound, http.StatusNotFound},
		{tenant.ErrUnsupportedVersion, http.StatusUnprocessableEntity},
		{tenant.ErrInvalidSettings, http.StatusBadRequest},
		{tenant.ErrConflict, http.StatusConflict},
	}
	for _, tc := range cases {
		router := newTestRouter(Config{Reports: testEngine(januarySource()), Settings: &stubSettings{err: tc.err}})
		rec := doRequest(t, router, http.MethodPut, tenantPath("/settings"), `{"version":1}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}
