package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/ledger"
	"github.com/odyssey-erp/finreports/internal/money"
)

// Category labels used by the period aggregators.
const (
	CategorySales        = "Sales"
	CategoryCostOfGoods  = "Cost of Goods Sold"
	CategoryOtherIncome  = "Other Income"
	CategoryOtherExpense = "Other Expenses"
)

// scope is everything an aggregator needs for one tenant and one build.
type scope struct {
	source   ledger.Source
	tenantID uuid.UUID
	policy   Policy
}

func (s scope) currency() string { return s.policy.Currency }

func (s scope) money(amount decimal.Decimal) money.Money {
	return money.New(amount, s.policy.Currency)
}

func (s scope) paidInvoices(ctx context.Context, p Period) ([]ledger.InvoiceFact, error) {
	invoices, err := s.source.Invoices(ctx, s.tenantID, ledger.InvoiceQuery{
		Range:    p.Range(),
		Statuses: []ledger.InvoiceStatus{ledger.InvoicePaid},
	})
	if err != nil {
		return nil, sourceErr("invoices", err)
	}
	return invoices, nil
}

// revenue sums paid invoices by invoice date. Recognition follows the invoice date, not the
// payment date, so an invoice dated in the period and paid later still counts here.
func (s scope) revenue(ctx context.Context, p Period) (Breakdown, error) {
	invoices, err := s.paidInvoices(ctx, p)
	if err != nil {
		return Breakdown{}, err
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Total)
	}
	return NewBreakdown(s.currency(), Entry{Category: CategorySales, Amount: s.money(total)}), nil
}

// costOfGoods prices every line of every paid invoice at the product's cost. Lines whose product
// has no cost record contribute zero.
func (s scope) costOfGoods(ctx context.Context, p Period) (Breakdown, error) {
	invoices, err := s.paidInvoices(ctx, p)
	if err != nil {
		return Breakdown{}, err
	}
	total := decimal.Zero
	if hasLines(invoices) {
		products, err := s.source.ProductCosts(ctx, s.tenantID)
		if err != nil {
			return Breakdown{}, sourceErr("product costs", err)
		}
		costs := make(map[uuid.UUID]decimal.Decimal, len(products))
		for _, prod := range products {
			costs[prod.ProductID] = prod.CostPrice
		}
		for _, inv := range invoices {
			for _, line := range inv.Lines {
				cost, ok := costs[line.ProductID]
				if !ok {
					continue
				}
				total = total.Add(cost.Mul(line.Quantity))
			}
		}
	}
	return NewBreakdown(s.currency(), Entry{Category: CategoryCostOfGoods, Amount: s.money(total)}), nil
}

// operatingExpenses groups period expenses by category. Prepaid expenses are capitalised on the
// balance sheet and never appear here.
func (s scope) operatingExpenses(ctx context.Context, p Period) (Breakdown, error) {
	expenses, err := s.source.Expenses(ctx, s.tenantID, p.Range())
	if err != nil {
		return Breakdown{}, sourceErr("expenses", err)
	}
	sums := make(map[ledger.ExpenseCategory]decimal.Decimal)
	for _, exp := range expenses {
		category := ledger.ParseExpenseCategory(string(exp.Category))
		if category == ledger.CategoryPrepaid {
			continue
		}
		if !s.policy.IncludeUnapprovedExpenses && !exp.Status.Approved() {
			continue
		}
		sums[category] = sums[category].Add(exp.Amount)
	}
	b := breakdownBuilder{currency: s.currency()}
	for _, cat := range ledger.ExpenseCategories() {
		if amount, ok := sums[cat]; ok {
			b.add(string(cat), s.money(amount))
		}
	}
	return b.build(), nil
}

// otherIncomeExpense has no backing facts yet; it returns zeroed, well-formed breakdowns.
func (s scope) otherIncomeExpense(context.Context, Period) (income, expense Breakdown, err error) {
	return ZeroBreakdown(s.currency(), CategoryOtherIncome), ZeroBreakdown(s.currency(), CategoryOtherExpense), nil
}

func hasLines(invoices []ledger.InvoiceFact) bool {
	for _, inv := range invoices {
		if len(inv.Lines) > 0 {
			return true
		}
	}
	return false
}
