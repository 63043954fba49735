// Package money provides fixed-point monetary values and the percentage helpers used by reports.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Scale is the number of fractional digits amounts are presented with.
const Scale = 2

// Epsilon is the tolerance used by balance checks (0.01 currency unit).
var Epsilon = decimal.New(1, -Scale)

// Money is a decimal amount in a single currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// New wraps a decimal amount.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// MustParse builds Money from a decimal literal and panics on malformed input. Intended for fixtures.
func MustParse(amount, currency string) Money {
	return Money{Amount: decimal.RequireFromString(amount), Currency: currency}
}

// ParseCurrency validates and normalises an ISO-4217 code.
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("money: invalid currency %q: %w", code, err)
	}
	return unit.String(), nil
}

// Add returns m + o. Currency is taken from whichever operand carries one.
func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount), Currency: pickCurrency(m, o)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: pickCurrency(m, o)}
}

// Neg flips the sign.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs drops the sign.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// Mul scales the amount by a decimal factor (quantity, rate).
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal compares amounts; currencies must match unless one side is unset.
func (m Money) Equal(o Money) bool {
	if m.Currency != "" && o.Currency != "" && m.Currency != o.Currency {
		return false
	}
	return m.Amount.Equal(o.Amount)
}

// WithinEpsilon reports |m - o| < Epsilon.
func (m Money) WithinEpsilon(o Money) bool {
	return m.Amount.Sub(o.Amount).Abs().LessThan(Epsilon)
}

// Round rounds half away from zero to Scale digits.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(Scale), Currency: m.Currency}
}

// String renders "100.00 USD".
func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.StringFixed(Scale)
	}
	return m.Amount.StringFixed(Scale) + " " + m.Currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// MarshalJSON encodes the amount as a fixed-point decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.Amount.StringFixed(Scale), Currency: m.Currency})
}

// UnmarshalJSON accepts the format produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("money: invalid amount %q: %w", raw.Amount, err)
	}
	m.Amount = amount
	m.Currency = raw.Currency
	return nil
}

// Sum totals the given values. The result carries the first non-empty currency.
func Sum(currency string, values ...Money) Money {
	total := Zero(currency)
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func pickCurrency(a, b Money) string {
	if a.Currency != "" {
		return a.Currency
	}
	return b.Currency
}
