package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/money"
)

// Figure is a derived amount with its margin against revenue.
type Figure struct {
	Amount money.Money     `json:"amount"`
	Margin decimal.Decimal `json:"margin"`
}

// ProfitLossReport is the income statement for a period.
type ProfitLossReport struct {
	TenantID          uuid.UUID        `json:"tenant_id"`
	Period            Period           `json:"period"`
	Currency          string           `json:"currency"`
	Revenue           Breakdown        `json:"revenue"`
	COGS              Breakdown        `json:"cogs"`
	GrossProfit       Figure           `json:"gross_profit"`
	OperatingExpenses Breakdown        `json:"operating_expenses"`
	OperatingIncome   Figure           `json:"operating_income"`
	OtherIncome       Breakdown        `json:"other_income"`
	OtherExpenses     Breakdown        `json:"other_expenses"`
	NetOther          money.Money      `json:"net_other"`
	NetIncome         Figure           `json:"net_income"`
	Comparison        *ComparisonBlock `json:"comparison,omitempty"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// plFigures holds the four period aggregator outputs.
type plFigures struct {
	revenue      Breakdown
	cogs         Breakdown
	opex         Breakdown
	otherIncome  Breakdown
	otherExpense Breakdown
}

func (f plFigures) grossProfit() money.Money { return f.revenue.Total.Sub(f.cogs.Total) }

func (f plFigures) operatingIncome() money.Money { return f.grossProfit().Sub(f.opex.Total) }

func (f plFigures) netOther() money.Money { return f.otherIncome.Total.Sub(f.otherExpense.Total) }

func (f plFigures) netIncome() money.Money { return f.operatingIncome().Add(f.netOther()) }

// totalExpenses is COGS plus operating and other expenses.
func (f plFigures) totalExpenses() money.Money {
	return f.cogs.Total.Add(f.opex.Total).Add(f.otherExpense.Total)
}

func (f plFigures) sections() map[string]Breakdown {
	return map[string]Breakdown{
		"revenue":            f.revenue,
		"cogs":               f.cogs,
		"operating_expenses": f.opex,
		"other_income":       f.otherIncome,
		"other_expenses":     f.otherExpense,
	}
}

// profitLossFigures runs the period aggregators concurrently. Each goroutine owns one field.
func (s scope) profitLossFigures(ctx context.Context, p Period) (plFigures, error) {
	var f plFigures
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		f.revenue, err = s.revenue(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		f.cogs, err = s.costOfGoods(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		f.opex, err = s.operatingExpenses(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		f.otherIncome, f.otherExpense, err = s.otherIncomeExpense(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return plFigures{}, err
	}
	if err := verifySections("profit_loss", f.sections()); err != nil {
		return plFigures{}, err
	}
	return f, nil
}

func (s scope) profitLoss(ctx context.Context, p Period) (*ProfitLossReport, error) {
	f, err := s.profitLossFigures(ctx, p)
	if err != nil {
		return nil, err
	}
	revenue := f.revenue.Total.Amount
	gross := f.grossProfit()
	operating := f.operatingIncome()
	net := f.netIncome()
	return &ProfitLossReport{
		TenantID:          s.tenantID,
		Period:            p,
		Currency:          s.currency(),
		Revenue:           f.revenue,
		COGS:              f.cogs,
		GrossProfit:       Figure{Amount: gross, Margin: money.MarginPercent(gross.Amount, revenue)},
		OperatingExpenses: f.opex,
		OperatingIncome:   Figure{Amount: operating, Margin: money.MarginPercent(operating.Amount, revenue)},
		OtherIncome:       f.otherIncome,
		OtherExpenses:     f.otherExpense,
		NetOther:          f.netOther(),
		NetIncome:         Figure{Amount: net, Margin: money.MarginPercent(net.Amount, revenue)},
	}, nil
}
