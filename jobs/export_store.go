package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
)

// ErrExportNotFound is returned for unknown or expired exports.
var ErrExportNotFound = errors.New("jobs: export not found")

// ExportStatus tracks an export through the queue.
type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportRunning ExportStatus = "running"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ExportRecord is the stored state of an export. The document body is kept under a separate key.
type ExportRecord struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenant_id"`
	Report      string         `json:"report"`
	Format      export.Format  `json:"format"`
	Params      export.Request `json:"params"`
	Status      ExportStatus   `json:"status"`
	Error       string         `json:"error,omitempty"`
	Filename    string         `json:"filename,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Size        int            `json:"size"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ExportStore keeps export records and documents in Redis until their TTL lapses.
type ExportStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewExportStore instantiates the store.
func NewExportStore(client *redis.Client, ttl time.Duration) *ExportStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportStore{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func recordKey(tenantID, id uuid.UUID) string {
	return fmt.Sprintf("finreports:export:%s:%s", tenantID, id)
}

func dataKey(tenantID, id uuid.UUID) string {
	return recordKey(tenantID, id) + ":data"
}

// Create stores a pending record.
func (s *ExportStore) Create(ctx context.Context, rec ExportRecord) (ExportRecord, error) {
	now := s.now()
	rec.Status = ExportPending
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := s.put(ctx, rec); err != nil {
		return ExportRecord{}, err
	}
	return rec, nil
}

// Get loads a record scoped to its tenant.
func (s *ExportStore) Get(ctx context.Context, tenantID, id uuid.UUID) (ExportRecord, error) {
	raw, err := s.client.Get(ctx, recordKey(tenantID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ExportRecord{}, ErrExportNotFound
	}
	if err != nil {
		return ExportRecord{}, err
	}
	var rec ExportRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return ExportRecord{}, fmt.Errorf("decode export record: %w", err)
	}
	return rec, nil
}

// MarkRunning flags the record as picked up by a worker.
func (s *ExportStore) MarkRunning(ctx context.Context, rec ExportRecord) (ExportRecord, error) {
	rec.Status = ExportRunning
	rec.Error = ""
	rec.UpdatedAt = s.now()
	return rec, s.put(ctx, rec)
}

// Complete stores the document and marks the record done.
func (s *ExportStore) Complete(ctx context.Context, rec ExportRecord, doc export.Document) (ExportRecord, error) {
	rec.Status = ExportDone
	rec.Error = ""
	rec.Filename = doc.Filename
	rec.ContentType = doc.ContentType
	rec.Size = len(doc.Data)
	rec.UpdatedAt = s.now()

	payload, err := json.Marshal(rec)
	if err != nil {
		return ExportRecord{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey(rec.TenantID, rec.ID), doc.Data, s.ttl)
		pipe.Set(ctx, recordKey(rec.TenantID, rec.ID), payload, s.ttl)
		return nil
	})
	if err != nil {
		return ExportRecord{}, err
	}
	return rec, nil
}

// Fail records the failure cause.
func (s *ExportStore) Fail(ctx context.Context, rec ExportRecord, cause error) (ExportRecord, error) {
	rec.Status = ExportFailed
	if cause != nil {
		rec.Error = cause.Error()
	}
	rec.UpdatedAt = s.now()
	return rec, s.put(ctx, rec)
}

// Document returns the rendered export once the record is done.
func (s *ExportStore) Document(ctx context.Context, tenantID, id uuid.UUID) (ExportRecord, export.Document, error) {
	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return ExportRecord{}, export.Document{}, err
	}
	if rec.Status != ExportDone {
		return rec, export.Document{}, nil
	}
	data, err := s.client.Get(ctx, dataKey(tenantID, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ExportRecord{}, export.Document{}, ErrExportNotFound
	}
	if err != nil {
		return ExportRecord{}, export.Document{}, err
	}
	return rec, export.Document{Filename: rec.Filename, ContentType: rec.ContentType, Data: data}, nil
}

func (s *ExportStore) put(ctx context.Context, rec ExportRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, recordKey(rec.TenantID, rec.ID), payload, s.ttl).Err()
}
