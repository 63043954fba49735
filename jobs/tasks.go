package jobs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueExports isolates report exports from other background work.
	QueueExports = "exports"
	// TaskReportExport renders a report into a downloadable document.
	TaskReportExport = "reports:export"
)

var errInvalidPayload = errors.New("jobs: invalid payload")

// ReportExportPayload describes a queued export.
type ReportExportPayload struct {
	ExportID uuid.UUID      `json:"export_id"`
	TenantID uuid.UUID      `json:"tenant_id"`
	Report   string         `json:"report"`
	Format   export.Format  `json:"format"`
	Params   export.Request `json:"params"`
}

func (p ReportExportPayload) validate() error {
	if p.ExportID == uuid.Nil || p.TenantID == uuid.Nil {
		return fmt.Errorf("%w: missing ids", errInvalidPayload)
	}
	if p.Report == "" || p.Report != p.Params.Report {
		return fmt.Errorf("%w: report %q does not match params", errInvalidPayload, p.Report)
	}
	if _, err := export.ParseFormat(string(p.Format)); err != nil {
		return fmt.Errorf("%w: %w", errInvalidPayload, err)
	}
	return nil
}

// NewReportExportTask constructs an Asynq task.
func NewReportExportTask(payload ReportExportPayload) (*asynq.Task, error) {
	if err := payload.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportExport, data), nil
}
