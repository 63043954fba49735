package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/money"
)

// AssetSection groups current and fixed assets.
type AssetSection struct {
	Current Breakdown   `json:"current"`
	Fixed   Breakdown   `json:"fixed"`
	Total   money.Money `json:"total"`
}

// LiabilitySection groups current and long-term liabilities.
type LiabilitySection struct {
	Current  Breakdown   `json:"current"`
	LongTerm Breakdown   `json:"long_term"`
	Total    money.Money `json:"total"`
}

// BalanceSheetTotals summarises both sides of the sheet.
type BalanceSheetTotals struct {
	Assets               money.Money `json:"assets"`
	Liabilities          money.Money `json:"liabilities"`
	Equity               money.Money `json:"equity"`
	LiabilitiesAndEquity money.Money `json:"liabilities_and_equity"`
}

// BalanceSheetReport is a point-in-time position. Balanced=false is a valid outcome, not an error.
type BalanceSheetReport struct {
	TenantID    uuid.UUID          `json:"tenant_id"`
	AsOf        time.Time          `json:"as_of"`
	Currency    string             `json:"currency"`
	Assets      AssetSection       `json:"assets"`
	Liabilities LiabilitySection   `json:"liabilities"`
	Equity      Breakdown          `json:"equity"`
	Totals      BalanceSheetTotals `json:"totals"`
	Difference  money.Money        `json:"difference"`
	Balanced    bool               `json:"balanced"`
	Comparison  *ComparisonBlock   `json:"comparison,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type positionFigures struct {
	currentAssets       Breakdown
	fixedAssets         Breakdown
	currentLiabilities  Breakdown
	longTermLiabilities Breakdown
	equity              Breakdown
}

func (f positionFigures) sections() map[string]Breakdown {
	return map[string]Breakdown{
		"current_assets":        f.currentAssets,
		"fixed_assets":          f.fixedAssets,
		"current_liabilities":   f.currentLiabilities,
		"long_term_liabilities": f.longTermLiabilities,
		"equity":                f.equity,
	}
}

func (s scope) positionFigures(ctx context.Context, report string, asOf time.Time) (positionFigures, error) {
	var f positionFigures
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		f.currentAssets, err = s.currentAssets(gctx, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		f.fixedAssets, err = s.fixedAssets(gctx, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		f.currentLiabilities, err = s.currentLiabilities(gctx, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		f.longTermLiabilities, err = s.longTermLiabilities(gctx, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		f.equity, err = s.equity(gctx, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return positionFigures{}, err
	}
	if err := verifySections(report, f.sections()); err != nil {
		return positionFigures{}, err
	}
	return f, nil
}

func (s scope) balanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheetReport, error) {
	f, err := s.positionFigures(ctx, "balance_sheet", asOf)
	if err != nil {
		return nil, err
	}
	assets := f.currentAssets.Total.Add(f.fixedAssets.Total)
	liabilities := f.currentLiabilities.Total.Add(f.longTermLiabilities.Total)
	equity := f.equity.Total
	liabilitiesAndEquity := liabilities.Add(equity)
	return &BalanceSheetReport{
		TenantID: s.tenantID,
		AsOf:     asOf,
		Currency: s.currency(),
		Assets:   AssetSection{Current: f.currentAssets, Fixed: f.fixedAssets, Total: assets},
		Liabilities: LiabilitySection{
			Current:  f.currentLiabilities,
			LongTerm: f.longTermLiabilities,
			Total:    liabilities,
		},
		Equity: f.equity,
		Totals: BalanceSheetTotals{
			Assets:               assets,
			Liabilities:          liabilities,
			Equity:               equity,
			LiabilitiesAndEquity: liabilitiesAndEquity,
		},
		Difference: assets.Sub(liabilitiesAndEquity),
		Balanced:   assets.WithinEpsilon(liabilitiesAndEquity),
	}, nil
}
