// Package ledger defines the read-only facts the reporting engine consumes and the Source that
// serves them.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DateRange bounds a query inclusively on both ends at day granularity.
// A zero From means "since the first record".
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := truncateDay(t)
	if !r.From.IsZero() && day.Before(truncateDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To)) {
		return false
	}
	return true
}

// InvoiceQuery selects invoices by date range and, optionally, status.
type InvoiceQuery struct {
	Range    DateRange
	Statuses []InvoiceStatus
}

// Matches reports whether the invoice satisfies the query.
func (q InvoiceQuery) Matches(f InvoiceFact) bool {
	if !q.Range.Contains(f.Date) {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if s == f.Status {
			return true
		}
	}
	return false
}

// Source is the read-only query surface over a tenant's transactional records.
// Implementations return an empty slice, not an error, when nothing matches.
type Source interface {
	Invoices(ctx context.Context, tenantID uuid.UUID, q InvoiceQuery) ([]InvoiceFact, error)
	Payments(ctx context.Context, tenantID uuid.UUID, r DateRange) ([]PaymentFact, error)
	Expenses(ctx context.Context, tenantID uuid.UUID, r DateRange) ([]ExpenseFact, error)
	ProductCosts(ctx context.Context, tenantID uuid.UUID) ([]ProductCostFact, error)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
