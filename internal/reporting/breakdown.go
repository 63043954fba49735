package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/money"
)

// Entry is one category line of a Breakdown.
type Entry struct {
	Category string      `json:"category"`
	Amount   money.Money `json:"amount"`
}

// Breakdown maps category names to amounts. Total always equals the sum of Entries.
type Breakdown struct {
	Entries []Entry     `json:"entries"`
	Total   money.Money `json:"total"`
}

// NewBreakdown builds a breakdown, merging repeated categories and keeping first-seen order.
func NewBreakdown(currency string, entries ...Entry) Breakdown {
	b := breakdownBuilder{currency: currency}
	for _, e := range entries {
		b.add(e.Category, e.Amount)
	}
	return b.build()
}

// ZeroBreakdown returns a well-formed breakdown with every category present at zero.
func ZeroBreakdown(currency string, categories ...string) Breakdown {
	b := breakdownBuilder{currency: currency}
	for _, c := range categories {
		b.add(c, money.Zero(currency))
	}
	return b.build()
}

// Amount returns the amount recorded for category, or zero.
func (b Breakdown) Amount(category string) money.Money {
	for _, e := range b.Entries {
		if e.Category == category {
			return e.Amount
		}
	}
	return money.Zero(b.Total.Currency)
}

// Has reports whether category is present.
func (b Breakdown) Has(category string) bool {
	for _, e := range b.Entries {
		if e.Category == category {
			return true
		}
	}
	return false
}

// Map returns the entries keyed by category.
func (b Breakdown) Map() map[string]money.Money {
	out := make(map[string]money.Money, len(b.Entries))
	for _, e := range b.Entries {
		out[e.Category] = e.Amount
	}
	return out
}

// Verify recomputes the total from the entries.
func (b Breakdown) Verify() error {
	sum := decimalSum(b)
	if !sum.Equal(b.Total.Amount) {
		return fmt.Errorf("total %s disagrees with entries sum %s", b.Total.Amount.StringFixed(money.Scale), sum.StringFixed(money.Scale))
	}
	return nil
}

type breakdownBuilder struct {
	currency string
	index    map[string]int
	entries  []Entry
}

func (b *breakdownBuilder) add(category string, amount money.Money) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[category]; ok {
		b.entries[i].Amount = b.entries[i].Amount.Add(amount)
		return
	}
	if amount.Currency == "" {
		amount.Currency = b.currency
	}
	b.index[category] = len(b.entries)
	b.entries = append(b.entries, Entry{Category: category, Amount: amount})
}

func (b *breakdownBuilder) build() Breakdown {
	entries := b.entries
	if entries == nil {
		entries = []Entry{}
	}
	amounts := make([]money.Money, len(entries))
	for i, e := range entries {
		amounts[i] = e.Amount
	}
	return Breakdown{Entries: entries, Total: money.Sum(b.currency, amounts...)}
}

// verifySections checks every named breakdown and returns the first violation as an AggregationError.
func verifySections(report string, sections map[string]Breakdown) error {
	for name, b := range sections {
		if err := b.Verify(); err != nil {
			return &AggregationError{Report: report, Section: name, Detail: err.Error()}
		}
	}
	return nil
}

func decimalSum(b Breakdown) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range b.Entries {
		sum = sum.Add(e.Amount.Amount)
	}
	return sum
}
