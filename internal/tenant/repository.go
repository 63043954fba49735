package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/finreports/internal/platform/db"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	db.TxBeginner
}

// Repository persists settings in the tenant_settings table.
type Repository struct {
	db  DB
	now func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(pool DB) *Repository {
	return &Repository{db: pool, now: time.Now}
}

const loadSettingsSQL = `SELECT payload FROM tenant_settings WHERE tenant_id = $1`

// Load returns the stored settings or ErrNotFound.
func (r *Repository) Load(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	var payload []byte
	if err := r.db.QueryRow(ctx, loadSettingsSQL, tenantID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, fmt.Errorf("tenant: load settings: %w", err)
	}
	s, err := Decode(payload)
	if err != nil {
		return Settings{}, err
	}
	s.TenantID = tenantID
	return s, nil
}

const (
	lockSettingsSQL   = `SELECT updated_at FROM tenant_settings WHERE tenant_id = $1 FOR UPDATE`
	upsertSettingsSQL = `INSERT INTO tenant_settings (tenant_id, version, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id) DO UPDATE SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
)

// Save writes s. When s.UpdatedAt is set it must match the stored row, otherwise ErrConflict.
func (r *Repository) Save(ctx context.Context, s Settings) (Settings, error) {
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var stored time.Time
		err := tx.QueryRow(ctx, lockSettingsSQL, s.TenantID).Scan(&stored)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return fmt.Errorf("tenant: lock settings: %w", err)
		case !s.UpdatedAt.IsZero() && !stored.Equal(s.UpdatedAt):
			return ErrConflict
		}
		s.UpdatedAt = r.now().UTC().Truncate(time.Microsecond)
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("tenant: encode settings: %w", err)
		}
		if _, err := tx.Exec(ctx, upsertSettingsSQL, s.TenantID, s.Version, payload, s.UpdatedAt); err != nil {
			return fmt.Errorf("tenant: save settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}
