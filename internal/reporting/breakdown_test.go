package reporting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/finreports/internal/money"
)

func TestNewBreakdownMergesCategories(t *testing.T) {
	b := NewBreakdown("USD",
		Entry{Category: "Rent", Amount: money.MustParse("50.00", "USD")},
		Entry{Category: "Travel", Amount: money.MustParse("10.10", "USD")},
		Entry{Category: "Rent", Amount: money.MustParse("0.20", "USD")},
	)
	require.Len(t, b.Entries, 2)
	assert.Equal(t, "Rent", b.Entries[0].Category)
	assert.True(t, b.Amount("Rent").Equal(money.MustParse("50.20", "USD")))
	assert.True(t, b.Total.Equal(money.MustParse("60.30", "USD")))
	assert.NoError(t, b.Verify())
}

func TestZeroBreakdownIsWellFormed(t *testing.T) {
	b := ZeroBreakdown("USD", CategoryOtherIncome)
	assert.True(t, b.Has(CategoryOtherIncome))
	assert.True(t, b.Total.IsZero())
	assert.NoError(t, b.Verify())

	empty := NewBreakdown("USD")
	assert.NotNil(t, empty.Entries)
	assert.True(t, empty.Total.IsZero())
	assert.True(t, empty.Amount("missing").IsZero())
}

func TestVerifySectionsReportsTamperedTotal(t *testing.T) {
	b := NewBreakdown("USD", Entry{Category: "Sales", Amount: money.MustParse("100.00", "USD")})
	b.Total = money.MustParse("99.99", "USD")

	err := verifySections("profit_loss", map[string]Breakdown{"revenue": b})
	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Equal(t, "revenue", aggErr.Section)
	assert.Contains(t, aggErr.Error(), "99.99")
}
