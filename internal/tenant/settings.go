// Package tenant owns the typed, versioned per-tenant settings record and turns it into the
// reporting policy.
package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/money"
	"github.com/odyssey-erp/finreports/internal/reporting"
)

// CurrentVersion is the only settings schema this build understands.
const CurrentVersion = 1

var (
	ErrNotFound           = errors.New("tenant: settings not found")
	ErrUnsupportedVersion = errors.New("tenant: unsupported settings version")
	ErrInvalidSettings    = errors.New("tenant: invalid settings")
	ErrConflict           = errors.New("tenant: settings changed concurrently")
)

// ReportingSettings overrides the engine defaults. Nil fields inherit.
type ReportingSettings struct {
	Currency                  string           `json:"currency,omitempty" validate:"omitempty,len=3"`
	OwnersEquity              *decimal.Decimal `json:"owners_equity,omitempty"`
	InceptionDate             string           `json:"inception_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IncludeUnapprovedExpenses *bool            `json:"include_unapproved_expenses,omitempty"`
}

// BillingSettings describes the subscription cycle.
type BillingSettings struct {
	Plan            string `json:"plan,omitempty" validate:"omitempty,oneof=free starter pro enterprise"`
	BillingDay      int    `json:"billing_day,omitempty" validate:"min=0,max=28"`
	NextBillingDate string `json:"next_billing_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// TrialSettings describes a trial, if any.
type TrialSettings struct {
	Active bool   `json:"active"`
	EndsOn string `json:"ends_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Settings is the per-tenant configuration record.
type Settings struct {
	TenantID  uuid.UUID         `json:"tenant_id"`
	Version   int               `json:"version" validate:"required"`
	Reporting ReportingSettings `json:"reporting"`
	Billing   BillingSettings   `json:"billing"`
	Trial     TrialSettings     `json:"trial"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Decode parses a stored record, refusing schema versions other than CurrentVersion.
func Decode(raw []byte) (Settings, error) {
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if header.Version != CurrentVersion {
		return Settings{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, header.Version)
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return s, nil
}

// Validate checks the record against its schema.
func (s Settings) Validate(v *validator.Validate) error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	if err := v.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if s.Trial.Active && s.Trial.EndsOn == "" {
		return fmt.Errorf("%w: active trial needs ends_on", ErrInvalidSettings)
	}
	if s.Reporting.Currency != "" {
		if _, err := money.ParseCurrency(s.Reporting.Currency); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
		}
	}
	return nil
}

// Policy overlays the reporting overrides on defaults.
func (s Settings) Policy(defaults reporting.Policy) reporting.Policy {
	p := defaults
	r := s.Reporting
	if r.Currency != "" {
		if code, err := money.ParseCurrency(r.Currency); err == nil {
			p.Currency = code
		}
	}
	if r.OwnersEquity != nil {
		p.OwnersEquity = *r.OwnersEquity
	}
	if r.InceptionDate != "" {
		if d, err := reporting.ParseDate(r.InceptionDate); err == nil {
			p.InceptionDate = d
		}
	}
	if r.IncludeUnapprovedExpenses != nil {
		p.IncludeUnapprovedExpenses = *r.IncludeUnapprovedExpenses
	}
	return p
}
