package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/money"
)

// AccountType classifies a trial balance row.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountRevenue   AccountType = "revenue"
	AccountExpense   AccountType = "expense"
)

// DebitNormal reports whether the account type carries a debit balance.
func (t AccountType) DebitNormal() bool {
	return t == AccountAsset || t == AccountExpense
}

// TrialBalanceRow is one non-zero account line. Exactly one of Debit and Credit is non-zero.
type TrialBalanceRow struct {
	AccountName string      `json:"account_name"`
	AccountType AccountType `json:"account_type"`
	Debit       money.Money `json:"debit"`
	Credit      money.Money `json:"credit"`
}

// TrialBalanceReport lists balances as of a date and flags whether debits equal credits.
type TrialBalanceReport struct {
	TenantID    uuid.UUID         `json:"tenant_id"`
	AsOf        time.Time         `json:"as_of"`
	Currency    string            `json:"currency"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  money.Money       `json:"total_debit"`
	TotalCredit money.Money       `json:"total_credit"`
	Difference  money.Money       `json:"difference"`
	Balanced    bool              `json:"balanced"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type trialSection struct {
	kind      AccountType
	breakdown Breakdown
}

// trialBalance flattens the position breakdowns as of asOf plus year-to-date income statement
// breakdowns into rows.
func (s scope) trialBalance(ctx context.Context, asOf time.Time) (*TrialBalanceReport, error) {
	var (
		position positionFigures
		ytd      plFigures
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		position, err = s.positionFigures(gctx, "trial_balance", asOf)
		return err
	})
	g.Go(func() error {
		var err error
		ytd, err = s.profitLossFigures(gctx, Period{Start: yearStart(asOf), End: asOf})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := []trialSection{
		{AccountAsset, position.currentAssets},
		{AccountAsset, position.fixedAssets},
		{AccountLiability, position.currentLiabilities},
		{AccountLiability, position.longTermLiabilities},
		{AccountEquity, position.equity},
		{AccountRevenue, ytd.revenue},
		{AccountRevenue, ytd.otherIncome},
		{AccountExpense, ytd.cogs},
		{AccountExpense, ytd.opex},
		{AccountExpense, ytd.otherExpense},
	}
	rows := flattenTrialRows(s.currency(), sections)
	debit, credit := money.Zero(s.currency()), money.Zero(s.currency())
	for _, r := range rows {
		debit = debit.Add(r.Debit)
		credit = credit.Add(r.Credit)
	}
	return &TrialBalanceReport{
		TenantID:    s.tenantID,
		AsOf:        asOf,
		Currency:    s.currency(),
		Rows:        rows,
		TotalDebit:  debit,
		TotalCredit: credit,
		Difference:  debit.Sub(credit),
		Balanced:    debit.WithinEpsilon(credit),
	}, nil
}

// flattenTrialRows omits zero balances. A balance on the "wrong" side of its account type, such
// as a negative cash balance, moves to the opposite column as a positive amount.
func flattenTrialRows(currency string, sections []trialSection) []TrialBalanceRow {
	rows := make([]TrialBalanceRow, 0)
	zero := money.Zero(currency)
	for _, sec := range sections {
		for _, e := range sec.breakdown.Entries {
			if e.Amount.IsZero() {
				continue
			}
			row := TrialBalanceRow{AccountName: e.Category, AccountType: sec.kind, Debit: zero, Credit: zero}
			debitSide := sec.kind.DebitNormal() != e.Amount.IsNegative()
			if debitSide {
				row.Debit = e.Amount.Abs()
			} else {
				row.Credit = e.Amount.Abs()
			}
			rows = append(rows, row)
		}
	}
	return rows
}
