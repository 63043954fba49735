package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemorySource is an in-memory Source used for fixtures, demos and tests.
type MemorySource struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID][]InvoiceFact
	payments map[uuid.UUID][]PaymentFact
	expenses map[uuid.UUID][]ExpenseFact
	products map[uuid.UUID][]ProductCostFact
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		invoices: make(map[uuid.UUID][]InvoiceFact),
		payments: make(map[uuid.UUID][]PaymentFact),
		expenses: make(map[uuid.UUID][]ExpenseFact),
		products: make(map[uuid.UUID][]ProductCostFact),
	}
}

// AddInvoices appends invoices for a tenant.
func (m *MemorySource) AddInvoices(tenantID uuid.UUID, facts ...InvoiceFact) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[tenantID] = append(m.invoices[tenantID], facts...)
	return m
}

// AddPayments appends payments for a tenant.
func (m *MemorySource) AddPayments(tenantID uuid.UUID, facts ...PaymentFact) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[tenantID] = append(m.payments[tenantID], facts...)
	return m
}

// AddExpenses appends expenses for a tenant.
func (m *MemorySource) AddExpenses(tenantID uuid.UUID, facts ...ExpenseFact) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[tenantID] = append(m.expenses[tenantID], facts...)
	return m
}

// AddProducts appends product cost records for a tenant.
func (m *MemorySource) AddProducts(tenantID uuid.UUID, facts ...ProductCostFact) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[tenantID] = append(m.products[tenantID], facts...)
	return m
}

// Invoices implements Source.
func (m *MemorySource) Invoices(ctx context.Context, tenantID uuid.UUID, q InvoiceQuery) ([]InvoiceFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]InvoiceFact, 0)
	for _, f := range m.invoices[tenantID] {
		if q.Matches(f) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Payments implements Source.
func (m *MemorySource) Payments(ctx context.Context, tenantID uuid.UUID, r DateRange) ([]PaymentFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PaymentFact, 0)
	for _, f := range m.payments[tenantID] {
		if r.Contains(f.Date) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Expenses implements Source.
func (m *MemorySource) Expenses(ctx context.Context, tenantID uuid.UUID, r DateRange) ([]ExpenseFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ExpenseFact, 0)
	for _, f := range m.expenses[tenantID] {
		if r.Contains(f.Date) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ProductCosts implements Source.
func (m *MemorySource) ProductCosts(ctx context.Context, tenantID uuid.UUID) ([]ProductCostFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProductCostFact, len(m.products[tenantID]))
	copy(out, m.products[tenantID])
	return out, nil
}
