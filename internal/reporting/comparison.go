package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/finreports/internal/money"
)

// ComparisonMode selects the period or date a report is compared against.
type ComparisonMode string

const (
	ComparisonNone           ComparisonMode = "none"
	ComparisonPreviousPeriod ComparisonMode = "previous_period"
	ComparisonPreviousYear   ComparisonMode = "previous_year"
	ComparisonPreviousMonth  ComparisonMode = "previous_month"
)

// ParseComparisonMode maps a query value onto a mode; blank means none.
func ParseComparisonMode(raw string) (ComparisonMode, error) {
	mode := ComparisonMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return ComparisonNone, nil
	case ComparisonNone, ComparisonPreviousPeriod, ComparisonPreviousYear, ComparisonPreviousMonth:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownComparisonMode, raw)
	}
}

// comparisonPeriod derives the period a profit and loss report is compared with.
func comparisonPeriod(p Period, mode ComparisonMode) (Period, error) {
	switch mode {
	case ComparisonPreviousPeriod:
		return p.PreviousPeriod(), nil
	case ComparisonPreviousYear:
		return p.ShiftYears(-1), nil
	default:
		return Period{}, fmt.Errorf("%w: %q not supported for period reports", ErrUnknownComparisonMode, mode)
	}
}

// comparisonDate derives the as-of date a balance sheet is compared with.
func comparisonDate(asOf time.Time, mode ComparisonMode) (time.Time, error) {
	switch mode {
	case ComparisonPreviousMonth:
		return ShiftMonths(asOf, -1), nil
	case ComparisonPreviousYear:
		return ShiftMonths(asOf, -12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q not supported for point-in-time reports", ErrUnknownComparisonMode, mode)
	}
}

// Variance compares one metric between the base report and the comparison report.
type Variance struct {
	Metric     string          `json:"metric"`
	Current    money.Money     `json:"current"`
	Comparison money.Money     `json:"comparison"`
	Amount     money.Money     `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// NewVariance computes current − comparison and its growth rate.
func NewVariance(metric string, current, comparison money.Money) Variance {
	return Variance{
		Metric:     metric,
		Current:    current,
		Comparison: comparison,
		Amount:     current.Sub(comparison),
		Percentage: money.GrowthRate(current.Amount, comparison.Amount),
	}
}

// ComparisonBlock is attached to a report built with a comparison mode.
type ComparisonBlock struct {
	Mode      ComparisonMode `json:"mode"`
	Period    *Period        `json:"period,omitempty"`
	AsOf      *time.Time     `json:"as_of,omitempty"`
	Variances []Variance     `json:"variances"`
}

// Variance returns the named variance.
func (c *ComparisonBlock) Variance(metric string) (Variance, bool) {
	if c == nil {
		return Variance{}, false
	}
	for _, v := range c.Variances {
		if v.Metric == metric {
			return v, true
		}
	}
	return Variance{}, false
}

// Variance metric names.
const (
	MetricRevenue           = "revenue"
	MetricCOGS              = "cogs"
	MetricGrossProfit       = "gross_profit"
	MetricOperatingExpenses = "operating_expenses"
	MetricOperatingIncome   = "operating_income"
	MetricNetIncome         = "net_income"
	MetricTotalAssets       = "total_assets"
	MetricTotalLiabilities  = "total_liabilities"
	MetricTotalEquity       = "total_equity"
)

func compareProfitLoss(mode ComparisonMode, current, previous *ProfitLossReport) *ComparisonBlock {
	period := previous.Period
	return &ComparisonBlock{
		Mode:   mode,
		Period: &period,
		Variances: []Variance{
			NewVariance(MetricRevenue, current.Revenue.Total, previous.Revenue.Total),
			NewVariance(MetricCOGS, current.COGS.Total, previous.COGS.Total),
			NewVariance(MetricGrossProfit, current.GrossProfit.Amount, previous.GrossProfit.Amount),
			NewVariance(MetricOperatingExpenses, current.OperatingExpenses.Total, previous.OperatingExpenses.Total),
			NewVariance(MetricOperatingIncome, current.OperatingIncome.Amount, previous.OperatingIncome.Amount),
			NewVariance(MetricNetIncome, current.NetIncome.Amount, previous.NetIncome.Amount),
		},
	}
}

func compareBalanceSheet(mode ComparisonMode, current, previous *BalanceSheetReport) *ComparisonBlock {
	asOf := previous.AsOf
	return &ComparisonBlock{
		Mode: mode,
		AsOf: &asOf,
		Variances: []Variance{
			NewVariance(MetricTotalAssets, current.Totals.Assets, previous.Totals.Assets),
			NewVariance(MetricTotalLiabilities, current.Totals.Liabilities, previous.Totals.Liabilities),
			NewVariance(MetricTotalEquity, current.Totals.Equity, previous.Totals.Equity),
		},
	}
}
