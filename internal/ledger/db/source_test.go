package ledgerdb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/ledger"
)

type fakeRows struct {
	values [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.pos-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(row), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		value := reflect.ValueOf(row[i])
		if value.Type().AssignableTo(target.Type()) {
			target.Set(value)
			continue
		}
		scanner, ok := d.(interface{ Scan(any) error })
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to %T", row[i], d)
		}
		if err := scanner.Scan(row[i]); err != nil {
			return err
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	results map[string]*fakeRows
	err     error
	calls   []call
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, call{sql: sql, args: args})
	if q.err != nil {
		return nil, q.err
	}
	for table, rows := range q.results {
		if strings.Contains(sql, "FROM "+table+"\n") {
			return rows, nil
		}
	}
	return &fakeRows{}, nil
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestInvoicesAttachLinesAndParseStatus(t *testing.T) {
	tenant := uuid.New()
	invA, invB, product := uuid.New(), uuid.New(), uuid.New()
	q := &fakeQuerier{results: map[string]*fakeRows{
		"report_invoices": {values: [][]any{
			{invA, uuid.New(), "100.00", "100.00", "PAID", day(2025, 1, 5), day(2025, 2, 5)},
			{invB, uuid.New(), "40.50", "0", "sent", day(2025, 1, 9), day(2025, 2, 9)},
		}},
		"report_invoice_lines": {values: [][]any{
			{invA, product, "2"},
			{invA, product, "1.5"},
		}},
	}}
	src := New(q)

	facts, err := src.Invoices(context.Background(), tenant, ledger.InvoiceQuery{
		Range:    ledger.DateRange{From: day(2025, 1, 1), To: day(2025, 1, 31)},
		Statuses: []ledger.InvoiceStatus{ledger.InvoicePaid, ledger.InvoiceUnpaid},
	})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, ledger.InvoicePaid, facts[0].Status)
	assert.Equal(t, ledger.InvoiceUnpaid, facts[1].Status)
	require.Len(t, facts[0].Lines, 2)
	assert.True(t, facts[0].Lines[1].Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.Empty(t, facts[1].Lines)

	require.Len(t, q.calls, 2)
	assert.Equal(t, tenant, q.calls[0].args[0])
	assert.Equal(t, pgtype.Date{Time: day(2025, 1, 1), Valid: true}, q.calls[0].args[1])
	assert.Equal(t, []string{"paid", "unpaid"}, q.calls[0].args[3])
	assert.Equal(t, []uuid.UUID{invA, invB}, q.calls[1].args[1])
}

func TestInvoicesSkipLineQueryWhenEmpty(t *testing.T) {
	q := &fakeQuerier{}
	facts, err := New(q).Invoices(context.Background(), uuid.New(), ledger.InvoiceQuery{})
	require.NoError(t, err)
	assert.Empty(t, facts)
	require.Len(t, q.calls, 1)
	assert.Equal(t, pgtype.Date{}, q.calls[0].args[1])
}

func TestPaymentsAndExpensesMapEnumerations(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"report_payments": {values: [][]any{
			{uuid.New(), "10", day(2025, 3, 1), "in", "sales"},
			{uuid.New(), "4", day(2025, 3, 2), "outflow", "rocket fuel"},
		}},
		"report_expenses": {values: [][]any{
			{uuid.New(), "50", "rent", day(2025, 3, 1), "pending"},
		}},
	}}
	src := New(q)

	payments, err := src.Payments(context.Background(), uuid.New(), ledger.DateRange{})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, ledger.Inflow, payments[0].Direction)
	assert.Equal(t, ledger.PaymentCustomer, payments[0].Category)
	assert.Equal(t, ledger.PaymentOther, payments[1].Category)

	expenses, err := src.Expenses(context.Background(), uuid.New(), ledger.DateRange{})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, ledger.CategoryRent, expenses[0].Category)
	assert.Equal(t, ledger.ExpensePending, expenses[0].Status)
}

func TestUnknownStatusIsAnError(t *testing.T) {
	q := &fakeQuerier{results: map[string]*fakeRows{
		"report_expenses": {values: [][]any{{uuid.New(), "50", "rent", day(2025, 3, 1), "lost"}}},
	}}
	_, err := New(q).Expenses(context.Background(), uuid.New(), ledger.DateRange{})
	require.ErrorIs(t, err, ledger.ErrUnknownStatus)
}

func TestQueryFailureIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := New(&fakeQuerier{err: boom}).ProductCosts(context.Background(), uuid.New())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ledgerdb: query products")
}
