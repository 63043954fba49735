package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
	"github.com/odyssey-erp/finreports/jobs"
)

type fakeExports struct {
	submitted []export.Request
	formats   []export.Format
	tenants   []uuid.UUID
	record    jobs.ExportRecord
	doc       export.Document
	err       error
}

func (f *fakeExports) Submit(_ context.Context, tenantID uuid.UUID, format export.Format, req export.Request) (jobs.ExportRecord, error) {
	f.tenants = append(f.tenants, tenantID)
	f.formats = append(f.formats, format)
	f.submitted = append(f.submitted, req)
	return f.record, f.err
}

func (f *fakeExports) Status(context.Context, uuid.UUID, uuid.UUID) (jobs.ExportRecord, error) {
	return f.record, f.err
}

func (f *fakeExports) Document(context.Context, uuid.UUID, uuid.UUID) (jobs.ExportRecord, export.Document, error) {
	return f.record, f.doc, f.err
}

type fakeInspector struct {
	info     *asynq.QueueInfo
	infoErr  error
	archived []*asynq.TaskInfo
	listed   int
}

func (f *fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeInspector) ListArchivedTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	f.listed++
	return f.archived, nil
}

func run(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Output = &out
	err := NewCLI(opts).Execute(context.Background(), args)
	return out.String(), err
}

func TestSubmitQueuesExport(t *testing.T) {
	tenantID := uuid.New()
	exportID := uuid.New()
	svc := &fakeExports{record: jobs.ExportRecord{ID: exportID, Status: jobs.ExportPending}}

	out, err := run(t, Options{Exports: svc},
		"exports", "submit",
		"--tenant", tenantID.String(),
		"--report", "trend",
		"--format", "XLSX",
		"--end", "2025-06-30",
		"--metric", "revenue",
		"--months", "6",
	)
	require.NoError(t, err)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, tenantID, svc.tenants[0])
	assert.Equal(t, export.FormatXLSX, svc.formats[0])
	assert.Equal(t, export.Request{Report: "trend", End: "2025-06-30", Metric: "revenue", Months: 6}, svc.submitted[0])
	assert.Contains(t, out, exportID.String())
	assert.Contains(t, out, "pending")
}

func TestSubmitRejectsBadInput(t *testing.T) {
	svc := &fakeExports{}

	_, err := run(t, Options{Exports: svc}, "exports", "submit", "--report", "trend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tenant"`)

	_, err = run(t, Options{Exports: svc}, "exports", "submit", "--tenant", uuid.NewString(), "--report", "trend", "--format", "pdf")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)

	_, err = run(t, Options{Exports: svc}, "exports", "submit", "--tenant", "acme", "--report", "trend")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tenant")

	assert.Empty(t, svc.submitted)
}

func TestStatusPrintsRecord(t *testing.T) {
	rec := jobs.ExportRecord{ID: uuid.New(), Report: "profit_loss", Status: jobs.ExportFailed, Error: "ledger unavailable"}
	out, err := run(t, Options{Exports: &fakeExports{record: rec}},
		"exports", "status", "--tenant", uuid.NewString(), "--id", rec.ID.String())
	require.NoError(t, err)

	var got jobs.ExportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, jobs.ExportFailed, got.Status)
	assert.Equal(t, "ledger unavailable", got.Error)
}

func TestStatusSurfacesMissingExport(t *testing.T) {
	_, err := run(t, Options{Exports: &fakeExports{err: jobs.ErrExportNotFound}},
		"exports", "status", "--tenant", uuid.NewString(), "--id", uuid.NewString())
	assert.ErrorIs(t, err, jobs.ErrExportNotFound)
}

func TestFetchWritesDocument(t *testing.T) {
	svc := &fakeExports{
		record: jobs.ExportRecord{ID: uuid.New(), Status: jobs.ExportDone},
		doc:    export.Document{Filename: "profit_loss.csv", Data: []byte("Line,Amount\nRevenue,100.00\n")},
	}
	dest := filepath.Join(t.TempDir(), "pl.csv")

	out, err := run(t, Options{Exports: svc},
		"exports", "fetch", "--tenant", uuid.NewString(), "--id", svc.record.ID.String(), "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, svc.doc.Data, data)

	out, err = run(t, Options{Exports: svc},
		"exports", "fetch", "--tenant", uuid.NewString(), "--id", svc.record.ID.String(), "--out", "-")
	require.NoError(t, err)
	assert.Equal(t, string(svc.doc.Data), out)
}

func TestFetchRefusesUnfinishedExport(t *testing.T) {
	svc := &fakeExports{record: jobs.ExportRecord{ID: uuid.New(), Status: jobs.ExportRunning}}
	dest := filepath.Join(t.TempDir(), "pl.csv")

	_, err := run(t, Options{Exports: svc},
		"exports", "fetch", "--tenant", uuid.NewString(), "--id", svc.record.ID.String(), "--out", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running")
	assert.NoFileExists(t, dest)
}

func TestQueueListsStatsAndArchivedTasks(t *testing.T) {
	inspector := &fakeInspector{
		info: &asynq.QueueInfo{Queue: jobs.QueueExports, Pending: 3, Active: 1, Archived: 1},
		archived: []*asynq.TaskInfo{
			{ID: "task-1", Type: jobs.TaskReportExport, Retried: 5, LastErr: "render xlsx: boom"},
		},
	}
	out, err := run(t, Options{Inspector: inspector}, "queue", "--archived", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING")
	assert.Regexp(t, `exports\s+3\s+1\s+0\s+0\s+1\s+false`, out)
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "render xlsx: boom")
	assert.Equal(t, 1, inspector.listed)
}

func TestQueueToleratesUnknownQueue(t *testing.T) {
	inspector := &fakeInspector{infoErr: asynq.ErrQueueNotFound}
	out, err := run(t, Options{Inspector: inspector}, "queue")
	require.NoError(t, err)
	assert.Regexp(t, `exports\s+0\s+0`, out)
	assert.Zero(t, inspector.listed)
}

func TestCommandsRequireWiring(t *testing.T) {
	_, err := run(t, Options{}, "queue")
	assert.ErrorIs(t, err, errNotConfigured)

	_, err = run(t, Options{}, "exports", "status", "--tenant", uuid.NewString(), "--id", uuid.NewString())
	assert.ErrorIs(t, err, errNotConfigured)
}
