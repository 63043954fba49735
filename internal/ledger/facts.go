package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is the product/quantity projection of an invoice line item.
type InvoiceLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// InvoiceFact is a read-only projection of an invoice.
type InvoiceFact struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Total      decimal.Decimal
	PaidAmount decimal.Decimal
	Status     InvoiceStatus
	Date       time.Time
	DueDate    time.Time
	Lines      []InvoiceLine
}

// Outstanding is the part of the total not yet paid, never negative.
func (f InvoiceFact) Outstanding() decimal.Decimal {
	out := f.Total.Sub(f.PaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// PaymentFact is a single cash movement.
type PaymentFact struct {
	ID        uuid.UUID
	Amount    decimal.Decimal
	Date      time.Time
	Direction PaymentDirection
	Category  PaymentCategory
}

// Signed returns the amount positive for inflows and negative for outflows.
func (f PaymentFact) Signed() decimal.Decimal {
	if f.Direction == Outflow {
		return f.Amount.Neg()
	}
	return f.Amount
}

// ExpenseFact is a recorded business expense.
type ExpenseFact struct {
	ID       uuid.UUID
	Amount   decimal.Decimal
	Category ExpenseCategory
	Date     time.Time
	Status   ExpenseStatus
}

// ProductCostFact carries the cost basis and stock level of a product.
type ProductCostFact struct {
	ProductID      uuid.UUID
	CostPrice      decimal.Decimal
	QuantityOnHand decimal.Decimal
	Active         bool
}
