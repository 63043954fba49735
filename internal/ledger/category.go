package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus is returned when a status string does not map to a known value.
var ErrUnknownStatus = errors.New("ledger: unknown status")

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceUnpaid    InvoiceStatus = "unpaid"
	InvoicePartial   InvoiceStatus = "partial"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Receivable reports whether an invoice in this state still has money owed to the tenant.
func (s InvoiceStatus) Receivable() bool {
	return s == InvoiceUnpaid || s == InvoicePartial || s == InvoiceOverdue
}

// ParseInvoiceStatus maps a stored status string onto the enumeration.
func ParseInvoiceStatus(raw string) (InvoiceStatus, error) {
	switch s := InvoiceStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case InvoiceDraft, InvoiceUnpaid, InvoicePartial, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return s, nil
	case "sent", "pending":
		return InvoiceUnpaid, nil
	case "partially_paid":
		return InvoicePartial, nil
	case "void", "canceled":
		return InvoiceCancelled, nil
	}
	return "", fmt.Errorf("%w: invoice %q", ErrUnknownStatus, raw)
}

// ExpenseStatus enumerates expense approval states.
type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpensePaid     ExpenseStatus = "paid"
	ExpenseRejected ExpenseStatus = "rejected"
)

// Approved reports whether the expense has cleared approval.
func (s ExpenseStatus) Approved() bool {
	return s == ExpenseApproved || s == ExpensePaid
}

// ParseExpenseStatus maps a stored status string onto the enumeration.
func ParseExpenseStatus(raw string) (ExpenseStatus, error) {
	switch s := ExpenseStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case ExpensePending, ExpenseApproved, ExpensePaid, ExpenseRejected:
		return s, nil
	}
	return "", fmt.Errorf("%w: expense %q", ErrUnknownStatus, raw)
}

// ExpenseCategory is the closed set of expense buckets. Values double as display labels.
type ExpenseCategory string

const (
	CategoryRent         ExpenseCategory = "Rent"
	CategoryUtilities    ExpenseCategory = "Utilities"
	CategorySalaries     ExpenseCategory = "Salaries"
	CategoryMarketing    ExpenseCategory = "Marketing"
	CategorySupplies     ExpenseCategory = "Supplies"
	CategoryInsurance    ExpenseCategory = "Insurance"
	CategoryTravel       ExpenseCategory = "Travel"
	CategoryMaintenance  ExpenseCategory = "Maintenance"
	CategoryProfessional ExpenseCategory = "Professional Services"
	CategoryTaxes        ExpenseCategory = "Taxes"
	CategoryPrepaid      ExpenseCategory = "Prepaid"
	CategoryAccrued      ExpenseCategory = "Accrued"
	CategoryOther        ExpenseCategory = "Other"
)

var expenseCategories = []ExpenseCategory{
	CategoryRent, CategoryUtilities, CategorySalaries, CategoryMarketing, CategorySupplies,
	CategoryInsurance, CategoryTravel, CategoryMaintenance, CategoryProfessional, CategoryTaxes,
	CategoryPrepaid, CategoryAccrued, CategoryOther,
}

var expenseAliases = map[string]ExpenseCategory{
	"salary":                CategorySalaries,
	"payroll":               CategorySalaries,
	"wages":                 CategorySalaries,
	"advertising":           CategoryMarketing,
	"office supplies":       CategorySupplies,
	"repairs":               CategoryMaintenance,
	"legal":                 CategoryProfessional,
	"accounting":            CategoryProfessional,
	"consulting":            CategoryProfessional,
	"tax":                   CategoryTaxes,
	"prepaid expenses":      CategoryPrepaid,
	"accrued expenses":      CategoryAccrued,
	"professional_services": CategoryProfessional,
}

// ExpenseCategories lists every category in display order.
func ExpenseCategories() []ExpenseCategory {
	out := make([]ExpenseCategory, len(expenseCategories))
	copy(out, expenseCategories)
	return out
}

// ParseExpenseCategory folds a free-form category onto the closed set; anything unknown is Other.
func ParseExpenseCategory(raw string) ExpenseCategory {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range expenseCategories {
		if strings.ToLower(string(c)) == key {
			return c
		}
	}
	if c, ok := expenseAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// PaymentDirection marks whether cash entered or left the business.
type PaymentDirection string

const (
	Inflow  PaymentDirection = "inflow"
	Outflow PaymentDirection = "outflow"
)

// ParsePaymentDirection maps a stored direction onto the enumeration.
func ParsePaymentDirection(raw string) (PaymentDirection, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "inflow", "in", "receipt":
		return Inflow, nil
	case "outflow", "out", "disbursement":
		return Outflow, nil
	}
	return "", fmt.Errorf("%w: payment direction %q", ErrUnknownStatus, raw)
}

// PaymentCategory classifies cash movements for the direct cash flow method.
type PaymentCategory string

const (
	PaymentCustomer  PaymentCategory = "customer"
	PaymentSupplier  PaymentCategory = "supplier"
	PaymentPayroll   PaymentCategory = "payroll"
	PaymentOperating PaymentCategory = "operating"
	PaymentTax       PaymentCategory = "tax"
	PaymentInvesting PaymentCategory = "investing"
	PaymentFinancing PaymentCategory = "financing"
	PaymentOther     PaymentCategory = "other"
)

// ParsePaymentCategory folds a free-form category onto the closed set; anything unknown is other.
func ParsePaymentCategory(raw string) PaymentCategory {
	switch c := PaymentCategory(strings.ToLower(strings.TrimSpace(raw))); c {
	case PaymentCustomer, PaymentSupplier, PaymentPayroll, PaymentOperating, PaymentTax, PaymentInvesting, PaymentFinancing:
		return c
	case "sales", "invoice":
		return PaymentCustomer
	case "purchase", "vendor":
		return PaymentSupplier
	case "salary", "wages":
		return PaymentPayroll
	case "expense":
		return PaymentOperating
	case "asset", "equipment":
		return PaymentInvesting
	case "loan", "capital", "dividend", "owner":
		return PaymentFinancing
	}
	return PaymentOther
}
