package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/finreports/internal/jobs"
	"github.com/odyssey-erp/finreports/internal/reporting"
	"github.com/odyssey-erp/finreports/internal/reporting/export"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportExportJob builds and renders queued exports.
type ReportExportJob struct {
	Builder export.Builder
	Store   *ExportStore
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewReportExportJob wires dependencies for the export handler.
func NewReportExportJob(builder export.Builder, store *ExportStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportExportJob {
	return &ReportExportJob{
		Builder: builder,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 2 * time.Minute,
	}
}

// Handle processes TaskReportExport tasks.
func (j *ReportExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Builder == nil || j.Store == nil {
		return errors.New("report export: handler not configured")
	}
	var payload ReportExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := payload.validate(); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	tracker := j.metrics().Track(TaskReportExport)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("export_id", payload.ExportID.String()),
		slog.String("tenant_id", payload.TenantID.String()),
		slog.String("report", payload.Report),
		slog.String("format", string(payload.Format)),
	)

	rec, err := j.Store.Get(ctx, payload.TenantID, payload.ExportID)
	if errors.Is(err, ErrExportNotFound) {
		logger.Warn("export record expired before processing")
		resultErr = fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		return resultErr
	}
	if err != nil {
		resultErr = err
		return resultErr
	}
	if rec, err = j.Store.MarkRunning(ctx, rec); err != nil {
		resultErr = err
		return resultErr
	}

	started := time.Now()
	doc, err := j.render(ctx, payload)
	if err != nil {
		if _, storeErr := j.Store.Fail(ctx, rec, err); storeErr != nil {
			logger.Error("record export failure", slog.Any("error", storeErr))
		}
		if reporting.IsInvalidInput(err) || errors.Is(err, export.ErrUnsupportedReport) {
			logger.Warn("export rejected", slog.Any("error", err))
			resultErr = fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			return resultErr
		}
		logger.Error("export failed", slog.Any("error", err))
		resultErr = err
		return resultErr
	}

	if _, err := j.Store.Complete(ctx, rec, doc); err != nil {
		resultErr = err
		logger.Error("store export", slog.Any("error", err))
		return resultErr
	}
	j.metrics().RecordExport(payload.Report, string(payload.Format), len(doc.Data))
	logger.Info("export completed", slog.Int("bytes", len(doc.Data)), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *ReportExportJob) render(ctx context.Context, payload ReportExportPayload) (export.Document, error) {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	report, err := export.Build(ctx, j.Builder, payload.TenantID, payload.Params)
	if err != nil {
		return export.Document{}, err
	}
	return export.Render(payload.Report, report, payload.Format)
}

func (j *ReportExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ReportExportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Exports accepts export requests and exposes their progress.
type Exports struct {
	store    *ExportStore
	enqueuer Enqueuer
}

// NewExports constructs the export front door used by the HTTP layer.
func NewExports(store *ExportStore, enqueuer Enqueuer) *Exports {
	return &Exports{store: store, enqueuer: enqueuer}
}

// Submit records a pending export and queues it.
func (e *Exports) Submit(ctx context.Context, tenantID uuid.UUID, format export.Format, req export.Request) (ExportRecord, error) {
	payload := ReportExportPayload{
		ExportID: uuid.New(),
		TenantID: tenantID,
		Report:   req.Report,
		Format:   format,
		Params:   req,
	}
	task, err := NewReportExportTask(payload)
	if err != nil {
		return ExportRecord{}, err
	}
	rec, err := e.store.Create(ctx, ExportRecord{
		ID:       payload.ExportID,
		TenantID: tenantID,
		Report:   req.Report,
		Format:   format,
		Params:   req,
	})
	if err != nil {
		return ExportRecord{}, err
	}
	_, err = e.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(QueueExports),
		asynq.TaskID(payload.ExportID.String()),
		asynq.MaxRetry(3),
	)
	if err != nil {
		if _, storeErr := e.store.Fail(ctx, rec, err); storeErr != nil {
			return ExportRecord{}, errors.Join(err, storeErr)
		}
		return ExportRecord{}, fmt.Errorf("enqueue export: %w", err)
	}
	return rec, nil
}

// Status returns the stored record.
func (e *Exports) Status(ctx context.Context, tenantID, exportID uuid.UUID) (ExportRecord, error) {
	return e.store.Get(ctx, tenantID, exportID)
}

// Document returns the record and, once done, its rendered document.
func (e *Exports) Document(ctx context.Context, tenantID, exportID uuid.UUID) (ExportRecord, export.Document, error) {
	return e.store.Document(ctx, tenantID, exportID)
}
