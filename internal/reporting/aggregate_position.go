package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/ledger"
	"github.com/odyssey-erp/finreports/internal/money"
)

// Balance sheet line labels.
const (
	LineCash               = "Cash"
	LineAccountsReceivable = "Accounts Receivable"
	LineInventory          = "Inventory"
	LinePrepaidExpenses    = "Prepaid Expenses"
	LineAccountsPayable    = "Accounts Payable"
	LineAccruedExpenses    = "Accrued Expenses"
	LineOwnersEquity       = "Owners' Equity"
	LineRetainedEarnings   = "Retained Earnings"
)

var receivableStatuses = []ledger.InvoiceStatus{ledger.InvoiceUnpaid, ledger.InvoicePartial, ledger.InvoiceOverdue}

// cashBalance is cumulative inflow minus outflow up to and including asOf.
func (s scope) cashBalance(ctx context.Context, asOf time.Time) (money.Money, error) {
	payments, err := s.source.Payments(ctx, s.tenantID, ledger.DateRange{To: asOf})
	if err != nil {
		return money.Money{}, sourceErr("payments", err)
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Signed())
	}
	return s.money(total), nil
}

// receivables is the unpaid remainder of open invoices dated on or before asOf.
func (s scope) receivables(ctx context.Context, asOf time.Time) (money.Money, error) {
	invoices, err := s.source.Invoices(ctx, s.tenantID, ledger.InvoiceQuery{
		Range:    ledger.DateRange{To: asOf},
		Statuses: receivableStatuses,
	})
	if err != nil {
		return money.Money{}, sourceErr("invoices", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Outstanding())
	}
	return s.money(total), nil
}

// inventoryValue prices the current stock of active products. Stock levels are not historised,
// so the figure is the same for every asOf.
func (s scope) inventoryValue(ctx context.Context) (money.Money, error) {
	products, err := s.source.ProductCosts(ctx, s.tenantID)
	if err != nil {
		return money.Money{}, sourceErr("product costs", err)
	}
	total := decimal.Zero
	for _, p := range products {
		if !p.Active {
			continue
		}
		total = total.Add(p.QuantityOnHand.Mul(p.CostPrice))
	}
	return s.money(total), nil
}

func (s scope) expensesUpTo(ctx context.Context, asOf time.Time) ([]ledger.ExpenseFact, error) {
	expenses, err := s.source.Expenses(ctx, s.tenantID, ledger.DateRange{To: asOf})
	if err != nil {
		return nil, sourceErr("expenses", err)
	}
	return expenses, nil
}

func (s scope) currentAssets(ctx context.Context, asOf time.Time) (Breakdown, error) {
	cash, err := s.cashBalance(ctx, asOf)
	if err != nil {
		return Breakdown{}, err
	}
	ar, err := s.receivables(ctx, asOf)
	if err != nil {
		return Breakdown{}, err
	}
	inventory, err := s.inventoryValue(ctx)
	if err != nil {
		return Breakdown{}, err
	}
	expenses, err := s.expensesUpTo(ctx, asOf)
	if err != nil {
		return Breakdown{}, err
	}
	prepaid := decimal.Zero
	for _, exp := range expenses {
		if ledger.ParseExpenseCategory(string(exp.Category)) == ledger.CategoryPrepaid && exp.Status != ledger.ExpenseRejected {
			prepaid = prepaid.Add(exp.Amount)
		}
	}
	return NewBreakdown(s.currency(),
		Entry{Category: LineCash, Amount: cash},
		Entry{Category: LineAccountsReceivable, Amount: ar},
		Entry{Category: LineInventory, Amount: inventory},
		Entry{Category: LinePrepaidExpenses, Amount: s.money(prepaid)},
	), nil
}

// fixedAssets has no backing facts yet. Callers must not rely on it staying empty.
func (s scope) fixedAssets(context.Context, time.Time) (Breakdown, error) {
	return NewBreakdown(s.currency()), nil
}

func (s scope) currentLiabilities(ctx context.Context, asOf time.Time) (Breakdown, error) {
	expenses, err := s.expensesUpTo(ctx, asOf)
	if err != nil {
		return Breakdown{}, err
	}
	payable, accrued := decimal.Zero, decimal.Zero
	for _, exp := range expenses {
		category := ledger.ParseExpenseCategory(string(exp.Category))
		switch {
		case category == ledger.CategoryAccrued:
			if exp.Status != ledger.ExpensePaid && exp.Status != ledger.ExpenseRejected {
				accrued = accrued.Add(exp.Amount)
			}
		case exp.Status == ledger.ExpensePending:
			payable = payable.Add(exp.Amount)
		}
	}
	return NewBreakdown(s.currency(),
		Entry{Category: LineAccountsPayable, Amount: s.money(payable)},
		Entry{Category: LineAccruedExpenses, Amount: s.money(accrued)},
	), nil
}

// longTermLiabilities has no backing facts yet.
func (s scope) longTermLiabilities(context.Context, time.Time) (Breakdown, error) {
	return NewBreakdown(s.currency()), nil
}

func (s scope) equity(ctx context.Context, asOf time.Time) (Breakdown, error) {
	retained, err := s.retainedEarnings(ctx, asOf)
	if err != nil {
		return Breakdown{}, err
	}
	return NewBreakdown(s.currency(),
		Entry{Category: LineOwnersEquity, Amount: s.money(s.policy.OwnersEquity)},
		Entry{Category: LineRetainedEarnings, Amount: retained},
	), nil
}

// retainedEarnings is net income from inception through December 31 of the year before asOf.
// Earnings of the open year are not closed into equity.
func (s scope) retainedEarnings(ctx context.Context, asOf time.Time) (money.Money, error) {
	closed := yearStart(asOf).AddDate(0, 0, -1)
	if closed.Before(s.policy.InceptionDate) {
		return money.Zero(s.currency()), nil
	}
	figures, err := s.profitLossFigures(ctx, Period{Start: s.policy.InceptionDate, End: closed})
	if err != nil {
		return money.Money{}, err
	}
	return figures.netIncome(), nil
}
