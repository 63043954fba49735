package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/money"
)

// TrendMetric selects what each trend point measures.
type TrendMetric string

const (
	TrendRevenue    TrendMetric = "revenue"
	TrendExpenses   TrendMetric = "expenses"
	TrendNetIncome  TrendMetric = "net_income"
	TrendProfitLoss TrendMetric = "profit_loss"
	TrendCashFlow   TrendMetric = "cash_flow"
)

// ParseTrendMetric validates a metric name.
func ParseTrendMetric(raw string) (TrendMetric, error) {
	metric := TrendMetric(strings.ToLower(strings.TrimSpace(raw)))
	switch metric {
	case TrendRevenue, TrendExpenses, TrendNetIncome, TrendProfitLoss, TrendCashFlow:
		return metric, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTrendMetric, raw)
	}
}

// TrendField names one value carried by a trend point.
type TrendField string

const (
	FieldRevenue           TrendField = "revenue"
	FieldCOGS              TrendField = "cogs"
	FieldGrossProfit       TrendField = "gross_profit"
	FieldOperatingExpenses TrendField = "operating_expenses"
	FieldNetIncome         TrendField = "net_income"
	FieldCashIn            TrendField = "cash_in"
	FieldCashOut           TrendField = "cash_out"
	FieldNetCash           TrendField = "net_cash"
)

// TrendPoint is one monthly sample.
type TrendPoint struct {
	PeriodLabel string                     `json:"period_label"`
	Period      Period                     `json:"period"`
	Values      map[TrendField]money.Money `json:"values"`
}

// Value returns the named field, or zero when absent.
func (p TrendPoint) Value(field TrendField) money.Money {
	if v, ok := p.Values[field]; ok {
		return v
	}
	return money.Money{}
}

// trendMeasure computes the trend fields of one sub-period.
type trendMeasure func(ctx context.Context, p Period) (map[TrendField]money.Money, error)

// buildSeries evaluates measure over window consecutive months ending with the month of anchor,
// oldest first. At most limit months are measured at once; every point is computed fresh.
func buildSeries(ctx context.Context, anchor time.Time, window, limit int, measure trendMeasure) ([]TrendPoint, error) {
	points := make([]TrendPoint, window)
	first := ShiftMonths(monthStart(anchor), -(window - 1))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < window; i++ {
		period := MonthPeriod(first.AddDate(0, i, 0))
		g.Go(func() error {
			values, err := measure(gctx, period)
			if err != nil {
				return err
			}
			points[i] = TrendPoint{PeriodLabel: period.Label(), Period: period, Values: values}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s scope) trendMeasure(metric TrendMetric) trendMeasure {
	switch metric {
	case TrendRevenue:
		return func(ctx context.Context, p Period) (map[TrendField]money.Money, error) {
			revenue, err := s.revenue(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[TrendField]money.Money{FieldRevenue: revenue.Total}, nil
		}
	case TrendExpenses:
		return func(ctx context.Context, p Period) (map[TrendField]money.Money, error) {
			opex, err := s.operatingExpenses(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[TrendField]money.Money{FieldOperatingExpenses: opex.Total}, nil
		}
	case TrendNetIncome:
		return func(ctx context.Context, p Period) (map[TrendField]money.Money, error) {
			f, err := s.profitLossFigures(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[TrendField]money.Money{FieldNetIncome: f.netIncome()}, nil
		}
	case TrendProfitLoss:
		return func(ctx context.Context, p Period) (map[TrendField]money.Money, error) {
			f, err := s.profitLossFigures(ctx, p)
			if err != nil {
				return nil, err
			}
			return map[TrendField]money.Money{
				FieldRevenue:           f.revenue.Total,
				FieldCOGS:              f.cogs.Total,
				FieldGrossProfit:       f.grossProfit(),
				FieldOperatingExpenses: f.opex.Total,
				FieldNetIncome:         f.netIncome(),
			}, nil
		}
	case TrendCashFlow:
		return func(ctx context.Context, p Period) (map[TrendField]money.Money, error) {
			payments, err := s.source.Payments(ctx, s.tenantID, p.Range())
			if err != nil {
				return nil, sourceErr("payments", err)
			}
			in, out := decimal.Zero, decimal.Zero
			for _, pay := range payments {
				signed := pay.Signed()
				if signed.IsNegative() {
					out = out.Add(signed.Neg())
				} else {
					in = in.Add(signed)
				}
			}
			return map[TrendField]money.Money{
				FieldCashIn:  s.money(in),
				FieldCashOut: s.money(out),
				FieldNetCash: s.money(in.Sub(out)),
			}, nil
		}
	}
	return nil
}
