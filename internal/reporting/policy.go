package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Policy carries the per-tenant knobs the builders depend on.
type Policy struct {
	Currency      string
	InceptionDate time.Time
	// OwnersEquity stands in for a capital-contribution ledger.
	OwnersEquity decimal.Decimal
	// IncludeUnapprovedExpenses counts pending and rejected expenses toward operating expenses.
	IncludeUnapprovedExpenses bool
}

// PolicySource resolves the policy for a tenant.
type PolicySource interface {
	Policy(ctx context.Context, tenantID uuid.UUID) (Policy, error)
}

// StaticPolicy serves the same policy to every tenant.
type StaticPolicy Policy

// Policy implements PolicySource.
func (p StaticPolicy) Policy(context.Context, uuid.UUID) (Policy, error) {
	return Policy(p), nil
}

// DefaultPolicy mirrors the configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		Currency:                  "USD",
		InceptionDate:             time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		OwnersEquity:              decimal.NewFromInt(10000),
		IncludeUnapprovedExpenses: true,
	}
}

func (p Policy) normalised() Policy {
	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.InceptionDate = Day(p.InceptionDate)
	return p
}
