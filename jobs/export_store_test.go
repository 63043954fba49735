package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
)

func TestExportStoreLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	rec, err := store.Create(ctx, ExportRecord{ID: uuid.New(), TenantID: uuid.New(), Report: "trend", Format: export.FormatCSV})
	require.NoError(t, err)

	_, doc, err := store.Document(ctx, rec.TenantID, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, doc.Data)

	rec, err = store.MarkRunning(ctx, rec)
	require.NoError(t, err)
	rec, err = store.Fail(ctx, rec, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, "boom", rec.Error)

	rec, err = store.MarkRunning(ctx, rec)
	require.NoError(t, err)
	assert.Empty(t, rec.Error)

	_, err = store.Complete(ctx, rec, export.Document{Filename: "trend.csv", ContentType: "text/csv", Data: []byte("a,b\n")})
	require.NoError(t, err)

	got, doc, err := store.Document(ctx, rec.TenantID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportDone, got.Status)
	assert.Equal(t, 4, got.Size)
	assert.Equal(t, "a,b\n", string(doc.Data))
}

func TestExportStoreExpiresRecords(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	rec, err := store.Create(ctx, ExportRecord{ID: uuid.New(), TenantID: uuid.New(), Report: "trend", Format: export.FormatCSV})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(ctx, rec.TenantID, rec.ID)
	assert.ErrorIs(t, err, ErrExportNotFound)
}
