// Package ledgerdb serves ledger facts from the Postgres reporting read model.
package ledgerdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/odyssey-erp/finreports/internal/ledger"
)

// Querier is the subset of pgxpool.Pool used by the source.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Source implements ledger.Source over the report_* read-model views.
type Source struct {
	db Querier
}

// New constructs a Source backed by a pgx pool or transaction.
func New(db Querier) *Source {
	return &Source{db: db}
}

var _ ledger.Source = (*Source)(nil)

const invoicesQuery = `
	SELECT id, customer_id, total, COALESCE(paid_amount, 0), status, invoice_date,
	       COALESCE(due_date, invoice_date)
	FROM report_invoices
	WHERE tenant_id = $1
	  AND ($2::date IS NULL OR invoice_date >= $2)
	  AND ($3::date IS NULL OR invoice_date <= $3)
	  AND (cardinality($4::text[]) = 0 OR status = ANY($4))
	ORDER BY invoice_date, id`

const invoiceLinesQuery = `
	SELECT invoice_id, product_id, quantity
	FROM report_invoice_lines
	WHERE tenant_id = $1 AND invoice_id = ANY($2)
	ORDER BY invoice_id, line_no`

// Invoices implements ledger.Source.
func (s *Source) Invoices(ctx context.Context, tenantID uuid.UUID, q ledger.InvoiceQuery) ([]ledger.InvoiceFact, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, st := range q.Statuses {
		statuses = append(statuses, string(st))
	}
	rows, err := s.db.Query(ctx, invoicesQuery, tenantID, dateParam(q.Range.From), dateParam(q.Range.To), statuses)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: query invoices: %w", err)
	}
	defer rows.Close()

	facts := make([]ledger.InvoiceFact, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			f      ledger.InvoiceFact
			status string
		)
		if err := rows.Scan(&f.ID, &f.CustomerID, &f.Total, &f.PaidAmount, &status, &f.Date, &f.DueDate); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan invoice: %w", err)
		}
		if f.Status, err = ledger.ParseInvoiceStatus(status); err != nil {
			return nil, fmt.Errorf("ledgerdb: invoice %s: %w", f.ID, err)
		}
		index[f.ID] = len(facts)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerdb: iterate invoices: %w", err)
	}
	if len(facts) == 0 {
		return facts, nil
	}

	ids := make([]uuid.UUID, 0, len(facts))
	for _, f := range facts {
		ids = append(ids, f.ID)
	}
	lineRows, err := s.db.Query(ctx, invoiceLinesQuery, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: query invoice lines: %w", err)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var (
			invoiceID uuid.UUID
			line      ledger.InvoiceLine
		)
		if err := lineRows.Scan(&invoiceID, &line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan invoice line: %w", err)
		}
		if i, ok := index[invoiceID]; ok {
			facts[i].Lines = append(facts[i].Lines, line)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerdb: iterate invoice lines: %w", err)
	}
	return facts, nil
}

const paymentsQuery = `
	SELECT id, amount, payment_date, direction, COALESCE(category, '')
	FROM report_payments
	WHERE tenant_id = $1
	  AND ($2::date IS NULL OR payment_date >= $2)
	  AND ($3::date IS NULL OR payment_date <= $3)
	ORDER BY payment_date, id`

// Payments implements ledger.Source.
func (s *Source) Payments(ctx context.Context, tenantID uuid.UUID, r ledger.DateRange) ([]ledger.PaymentFact, error) {
	rows, err := s.db.Query(ctx, paymentsQuery, tenantID, dateParam(r.From), dateParam(r.To))
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: query payments: %w", err)
	}
	defer rows.Close()

	facts := make([]ledger.PaymentFact, 0)
	for rows.Next() {
		var (
			f         ledger.PaymentFact
			direction string
			category  string
		)
		if err := rows.Scan(&f.ID, &f.Amount, &f.Date, &direction, &category); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan payment: %w", err)
		}
		if f.Direction, err = ledger.ParsePaymentDirection(direction); err != nil {
			return nil, fmt.Errorf("ledgerdb: payment %s: %w", f.ID, err)
		}
		f.Category = ledger.ParsePaymentCategory(category)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerdb: iterate payments: %w", err)
	}
	return facts, nil
}

const expensesQuery = `
	SELECT id, amount, COALESCE(category, ''), expense_date, status
	FROM report_expenses
	WHERE tenant_id = $1
	  AND ($2::date IS NULL OR expense_date >= $2)
	  AND ($3::date IS NULL OR expense_date <= $3)
	ORDER BY expense_date, id`

// Expenses implements ledger.Source.
func (s *Source) Expenses(ctx context.Context, tenantID uuid.UUID, r ledger.DateRange) ([]ledger.ExpenseFact, error) {
	rows, err := s.db.Query(ctx, expensesQuery, tenantID, dateParam(r.From), dateParam(r.To))
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: query expenses: %w", err)
	}
	defer rows.Close()

	facts := make([]ledger.ExpenseFact, 0)
	for rows.Next() {
		var (
			f        ledger.ExpenseFact
			category string
			status   string
		)
		if err := rows.Scan(&f.ID, &f.Amount, &category, &f.Date, &status); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan expense: %w", err)
		}
		f.Category = ledger.ParseExpenseCategory(category)
		if f.Status, err = ledger.ParseExpenseStatus(status); err != nil {
			return nil, fmt.Errorf("ledgerdb: expense %s: %w", f.ID, err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerdb: iterate expenses: %w", err)
	}
	return facts, nil
}

const productsQuery = `
	SELECT id, COALESCE(cost_price, 0), COALESCE(quantity_on_hand, 0), is_active
	FROM report_products
	WHERE tenant_id = $1
	ORDER BY id`

// ProductCosts implements ledger.Source.
func (s *Source) ProductCosts(ctx context.Context, tenantID uuid.UUID) ([]ledger.ProductCostFact, error) {
	rows, err := s.db.Query(ctx, productsQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ledgerdb: query products: %w", err)
	}
	defer rows.Close()

	facts := make([]ledger.ProductCostFact, 0)
	for rows.Next() {
		var f ledger.ProductCostFact
		if err := rows.Scan(&f.ProductID, &f.CostPrice, &f.QuantityOnHand, &f.Active); err != nil {
			return nil, fmt.Errorf("ledgerdb: scan product: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerdb: iterate products: %w", err)
	}
	return facts, nil
}

func dateParam(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	y, m, d := t.UTC().Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}
