package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/finreports/internal/money"
	"github.com/odyssey-erp/finreports/internal/reporting"
)

func usd(raw string) money.Money { return money.MustParse(raw, "USD") }

func sampleProfitLoss() *reporting.ProfitLossReport {
	period := reporting.Period{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	return &reporting.ProfitLossReport{
		TenantID:          uuid.New(),
		Period:            period,
		Currency:          "USD",
		Revenue:           reporting.NewBreakdown("USD", reporting.Entry{Category: "Sales", Amount: usd("1000")}),
		COGS:              reporting.NewBreakdown("USD", reporting.Entry{Category: "Cost of Goods Sold", Amount: usd("400")}),
		GrossProfit:       reporting.Figure{Amount: usd("600")},
		OperatingExpenses: reporting.NewBreakdown("USD", reporting.Entry{Category: "Rent", Amount: usd("100")}),
		OperatingIncome:   reporting.Figure{Amount: usd("500")},
		OtherIncome:       reporting.ZeroBreakdown("USD"),
		OtherExpenses:     reporting.ZeroBreakdown("USD"),
		NetIncome:         reporting.Figure{Amount: usd("500")},
		Comparison: &reporting.ComparisonBlock{
			Mode:      reporting.ComparisonPreviousPeriod,
			Variances: []reporting.Variance{reporting.NewVariance(reporting.MetricRevenue, usd("1000"), usd("800"))},
		},
	}
}

func sampleTrialBalance() *reporting.TrialBalanceReport {
	return &reporting.TrialBalanceReport{
		Currency: "USD",
		AsOf:     time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Rows: []reporting.TrialBalanceRow{
			{AccountName: "Cash", AccountType: reporting.AccountAsset, Debit: usd("700"), Credit: usd("0")},
			{AccountName: "Owners' Equity", AccountType: reporting.AccountEquity, Debit: usd("0"), Credit: usd("700")},
		},
		TotalDebit:  usd("700"),
		TotalCredit: usd("700"),
		Balanced:    true,
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSVProfitLoss(t *testing.T) {
	tables, err := Tables(sampleProfitLoss())
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, tables))
	records := readCSV(t, buf.Bytes())

	assert.Equal(t, []string{"Summary"}, records[0])
	assert.Contains(t, records, []string{"Period", "2025-01-01 to 2025-01-31"})
	assert.Contains(t, records, []string{"Sales", "1000.00"})
	assert.Contains(t, records, []string{"Net Income", "500.00"})
	assert.Contains(t, records, []string{"revenue", "1000.00", "800.00", "200.00", "25.00"})
}

func TestRenderXLSXHasSheetPerSection(t *testing.T) {
	doc, err := Render(reporting.KindTrialBalance, sampleTrialBalance(), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "trial_balance.xlsx", doc.Filename)
	assert.Equal(t, FormatXLSX.ContentType(), doc.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Trial Balance"}, f.GetSheetList())
	rows, err := f.GetRows("Trial Balance")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Account", "Type", "Debit", "Credit"}, rows[0])
	assert.Equal(t, "Cash", rows[1][0])
	assert.Equal(t, "Total", rows[3][0])
}

func TestRenderProfitLossWorkbookSheets(t *testing.T) {
	doc, err := Render(reporting.KindProfitLoss, sampleProfitLoss(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{
		"Summary", "Revenue", "Cost of Goods Sold", "Operating Expenses",
		"Other Income", "Other Expenses", "Comparison",
	}, f.GetSheetList())
}

func TestRenderTrendColumnsFollowPresentFields(t *testing.T) {
	points := []reporting.TrendPoint{
		{PeriodLabel: "2025-01", Values: map[reporting.TrendField]money.Money{reporting.FieldRevenue: usd("10")}},
		{PeriodLabel: "2025-02", Values: map[reporting.TrendField]money.Money{reporting.FieldRevenue: usd("12.5")}},
	}
	doc, err := Render(reporting.KindTrend, points, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)

	records := readCSV(t, doc.Data)
	assert.Equal(t, [][]string{
		{"Trend"},
		{"Period", "revenue"},
		{"2025-01", "10.00"},
		{"2025-02", "12.50"},
	}, records)
}

func TestRenderRejectsUnknownInput(t *testing.T) {
	_, err := Render(reporting.KindProfitLoss, sampleProfitLoss(), Format("pdf"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Render("unknown", struct{}{}, FormatCSV)
	assert.True(t, errors.Is(err, ErrUnsupportedReport))
}

func TestSheetNameSanitised(t *testing.T) {
	assert.Equal(t, "Q1-Q2", sheetName("Q1/Q2"))
	assert.Len(t, sheetName("A very long section name that overflows"), maxSheetName)
}

type stubBuilder struct {
	Builder
	asOf time.Time
}

func (s *stubBuilder) TrialBalance(_ context.Context, _ uuid.UUID, asOf time.Time) (*reporting.TrialBalanceReport, error) {
	s.asOf = asOf
	return sampleTrialBalance(), nil
}

func TestBuildDispatchesByReport(t *testing.T) {
	stub := &stubBuilder{}
	report, err := Build(context.Background(), stub, uuid.New(), Request{Report: reporting.KindTrialBalance, AsOf: "2025-03-31"})
	require.NoError(t, err)
	assert.IsType(t, &reporting.TrialBalanceReport{}, report)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), stub.asOf)
}

func TestBuildRejectsBadParameters(t *testing.T) {
	ctx := context.Background()
	_, err := Build(ctx, &stubBuilder{}, uuid.New(), Request{Report: "ledger"})
	assert.ErrorIs(t, err, ErrUnsupportedReport)

	_, err = Build(ctx, &stubBuilder{}, uuid.New(), Request{Report: reporting.KindProfitLoss, Start: "2025-02-01", End: "2025-01-01"})
	assert.ErrorIs(t, err, reporting.ErrInvalidPeriod)

	_, err = Build(ctx, &stubBuilder{}, uuid.New(), Request{Report: reporting.KindTrend, Metric: "ebitda", Months: 3})
	assert.ErrorIs(t, err, reporting.ErrUnknownTrendMetric)
}

func TestRenderXLSXKeepsAmountsExact(t *testing.T) {
	report := sampleTrialBalance()
	report.Rows[0].Debit = usd("12345678901234.56")
	report.TotalDebit = usd("12345678901234.56")
	doc, err := Render(reporting.KindTrialBalance, report, FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	raw, err := f.GetCellValue("Trial Balance", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "12345678901234.56", raw)
	typ, err := f.GetCellType("Trial Balance", "C2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeUnset, typ, "amounts are stored as numbers")

	typ, err = f.GetCellType("Trial Balance", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeUnset, typ, "text columns stay text")
}

func TestRenderXLSXLeavesNonDecimalValuesAsText(t *testing.T) {
	tables := []Table{{
		Name:    "Mixed",
		Header:  []string{"Label", "Value"},
		Rows:    [][]string{{"Period", "2025-01-01 to 2025-01-31"}, {"Odd", "NaN"}, {"Big", "1e9"}, {"0042", "7.50"}},
		Numeric: []int{1},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tables))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	for _, cell := range []string{"B2", "B3", "B4"} {
		typ, err := f.GetCellType("Mixed", cell)
		require.NoError(t, err)
		assert.NotEqual(t, excelize.CellTypeUnset, typ, cell)
	}
	typ, err := f.GetCellType("Mixed", "A5")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeUnset, typ, "label column keeps digit strings as text")

	typ, err = f.GetCellType("Mixed", "B5")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeUnset, typ)
}
