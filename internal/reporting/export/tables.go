// Package export renders finished reports as CSV or XLSX documents.
package export

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/finreports/internal/money"
	"github.com/odyssey-erp/finreports/internal/reporting"
)

// ErrUnsupportedReport is returned when Render receives a value it cannot lay out.
var ErrUnsupportedReport = errors.New("export: unsupported report")

// Table is one section of a report flattened into rows of display strings. Numeric lists the
// column indexes holding decimal amounts; other columns are always text.
type Table struct {
	Name    string
	Header  []string
	Rows    [][]string
	Numeric []int
}

// IsNumeric reports whether column col holds amounts.
func (t Table) IsNumeric(col int) bool {
	for _, c := range t.Numeric {
		if c == col {
			return true
		}
	}
	return false
}

const dateLayout = "2006-01-02"

var trendFieldOrder = []reporting.TrendField{
	reporting.FieldRevenue,
	reporting.FieldCOGS,
	reporting.FieldGrossProfit,
	reporting.FieldOperatingExpenses,
	reporting.FieldNetIncome,
	reporting.FieldCashIn,
	reporting.FieldCashOut,
	reporting.FieldNetCash,
}

// Tables lays a report out as ordered sections.
func Tables(report any) ([]Table, error) {
	switch r := report.(type) {
	case *reporting.ProfitLossReport:
		return profitLossTables(r), nil
	case *reporting.BalanceSheetReport:
		return balanceSheetTables(r), nil
	case *reporting.CashFlowReport:
		return cashFlowTables(r), nil
	case *reporting.TrialBalanceReport:
		return trialBalanceTables(r), nil
	case []reporting.TrendPoint:
		return trendTables(r), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedReport, report)
}

func profitLossTables(r *reporting.ProfitLossReport) []Table {
	summary := Table{
		Name:    "Summary",
		Header:  []string{"Metric", "Value"},
		Numeric: []int{1},
		Rows: [][]string{
			{"Period", periodText(r.Period)},
			{"Currency", r.Currency},
			{"Revenue", amount(r.Revenue.Total)},
			{"Cost of Goods Sold", amount(r.COGS.Total)},
			{"Gross Profit", amount(r.GrossProfit.Amount)},
			{"Gross Margin %", r.GrossProfit.Margin.StringFixed(2)},
			{"Operating Expenses", amount(r.OperatingExpenses.Total)},
			{"Operating Income", amount(r.OperatingIncome.Amount)},
			{"Operating Margin %", r.OperatingIncome.Margin.StringFixed(2)},
			{"Other Income", amount(r.OtherIncome.Total)},
			{"Other Expenses", amount(r.OtherExpenses.Total)},
			{"Net Income", amount(r.NetIncome.Amount)},
			{"Net Margin %", r.NetIncome.Margin.StringFixed(2)},
		},
	}
	tables := []Table{
		summary,
		breakdownTable("Revenue", r.Revenue),
		breakdownTable("Cost of Goods Sold", r.COGS),
		breakdownTable("Operating Expenses", r.OperatingExpenses),
		breakdownTable("Other Income", r.OtherIncome),
		breakdownTable("Other Expenses", r.OtherExpenses),
	}
	if r.Comparison != nil {
		tables = append(tables, comparisonTable(r.Comparison))
	}
	return tables
}

func balanceSheetTables(r *reporting.BalanceSheetReport) []Table {
	summary := Table{
		Name:    "Summary",
		Header:  []string{"Metric", "Value"},
		Numeric: []int{1},
		Rows: [][]string{
			{"As Of", r.AsOf.Format(dateLayout)},
			{"Currency", r.Currency},
			{"Total Assets", amount(r.Totals.Assets)},
			{"Total Liabilities", amount(r.Totals.Liabilities)},
			{"Total Equity", amount(r.Totals.Equity)},
			{"Liabilities and Equity", amount(r.Totals.LiabilitiesAndEquity)},
			{"Difference", amount(r.Difference)},
			{"Balanced", yesNo(r.Balanced)},
		},
	}
	tables := []Table{
		summary,
		breakdownTable("Current Assets", r.Assets.Current),
		breakdownTable("Fixed Assets", r.Assets.Fixed),
		breakdownTable("Current Liabilities", r.Liabilities.Current),
		breakdownTable("Long-term Liabilities", r.Liabilities.LongTerm),
		breakdownTable("Equity", r.Equity),
	}
	if r.Comparison != nil {
		tables = append(tables, comparisonTable(r.Comparison))
	}
	return tables
}

func cashFlowTables(r *reporting.CashFlowReport) []Table {
	return []Table{
		{
			Name:    "Summary",
			Header:  []string{"Metric", "Value"},
			Numeric: []int{1},
			Rows: [][]string{
				{"Period", periodText(r.Period)},
				{"Currency", r.Currency},
				{"Method", string(r.Method)},
				{"Operating", amount(r.Operating.Total)},
				{"Investing", amount(r.Investing.Total)},
				{"Financing", amount(r.Financing.Total)},
				{"Net Cash Flow", amount(r.NetCashFlow)},
				{"Beginning Cash", amount(r.BeginningCash)},
				{"Ending Cash", amount(r.EndingCash)},
				{"Ledger Ending Cash", amount(r.LedgerEndingCash)},
				{"Reconciled", yesNo(r.Reconciled)},
			},
		},
		breakdownTable("Operating", r.Operating),
		breakdownTable("Investing", r.Investing),
		breakdownTable("Financing", r.Financing),
	}
}

func trialBalanceTables(r *reporting.TrialBalanceReport) []Table {
	rows := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		rows = append(rows, []string{row.AccountName, string(row.AccountType), amount(row.Debit), amount(row.Credit)})
	}
	rows = append(rows, []string{"Total", "", amount(r.TotalDebit), amount(r.TotalCredit)})
	return []Table{{
		Name:    "Trial Balance",
		Header:  []string{"Account", "Type", "Debit", "Credit"},
		Rows:    rows,
		Numeric: []int{2, 3},
	}}
}

func trendTables(points []reporting.TrendPoint) []Table {
	var fields []reporting.TrendField
	for _, field := range trendFieldOrder {
		for _, p := range points {
			if _, ok := p.Values[field]; ok {
				fields = append(fields, field)
				break
			}
		}
	}
	header := []string{"Period"}
	numeric := make([]int, 0, len(fields))
	for i, field := range fields {
		header = append(header, string(field))
		numeric = append(numeric, i+1)
	}
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{p.PeriodLabel}
		for _, field := range fields {
			row = append(row, amount(p.Value(field)))
		}
		rows = append(rows, row)
	}
	return []Table{{Name: "Trend", Header: header, Rows: rows, Numeric: numeric}}
}

func breakdownTable(name string, b reporting.Breakdown) Table {
	rows := make([][]string, 0, len(b.Entries)+1)
	for _, entry := range b.Entries {
		rows = append(rows, []string{entry.Category, amount(entry.Amount)})
	}
	rows = append(rows, []string{"Total", amount(b.Total)})
	return Table{Name: name, Header: []string{"Category", "Amount"}, Rows: rows, Numeric: []int{1}}
}

func comparisonTable(block *reporting.ComparisonBlock) Table {
	rows := make([][]string, 0, len(block.Variances)+1)
	rows = append(rows, []string{"Compared To", comparisonLabel(block)})
	for _, v := range block.Variances {
		rows = append(rows, []string{
			v.Metric,
			amount(v.Current),
			amount(v.Comparison),
			amount(v.Amount),
			v.Percentage.StringFixed(2),
		})
	}
	return Table{
		Name:    "Comparison",
		Header:  []string{"Metric", "Current", "Comparison", "Variance", "Variance %"},
		Rows:    rows,
		Numeric: []int{1, 2, 3, 4},
	}
}

func comparisonLabel(block *reporting.ComparisonBlock) string {
	switch {
	case block.Period != nil:
		return periodText(*block.Period)
	case block.AsOf != nil:
		return block.AsOf.Format(dateLayout)
	}
	return string(block.Mode)
}

func periodText(p reporting.Period) string {
	return p.Start.Format(dateLayout) + " to " + p.End.Format(dateLayout)
}

func amount(m money.Money) string {
	return m.Amount.StringFixed(money.Scale)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
