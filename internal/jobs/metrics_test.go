package jobmetrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestTrackerCountsSuccessAndFailure(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	assert.NoError(t, metrics.Track("reports:export").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("reports:export").End(boom), boom)

	body := scrape(t, registry)
	assert.True(t, strings.Contains(body, `finreports_jobs_total{job="reports:export",status="success"} 1`), body)
	assert.True(t, strings.Contains(body, `finreports_jobs_total{job="reports:export",status="failure"} 1`), body)
	assert.True(t, strings.Contains(body, `finreports_jobs_failures_total{job="reports:export"} 1`), body)
}

func TestRecordExport(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordExport("balance_sheet", "xlsx", 4096)
	metrics.RecordExport("balance_sheet", "xlsx", 2048)

	body := scrape(t, registry)
	assert.Contains(t, body, `finreports_exports_total{format="xlsx",report="balance_sheet"} 2`)
	assert.Contains(t, body, `finreports_export_size_bytes_count{format="xlsx"} 2`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordExport("trend", "csv", 10)
	assert.NoError(t, metrics.Track("noop").End(nil))
}
