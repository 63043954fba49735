package export

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/finreports/internal/reporting"
)

// Builder is the subset of reporting.Engine needed to produce exportable reports.
type Builder interface {
	ProfitLoss(ctx context.Context, tenantID uuid.UUID, period reporting.Period, mode reporting.ComparisonMode) (*reporting.ProfitLossReport, error)
	BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time, mode reporting.ComparisonMode) (*reporting.BalanceSheetReport, error)
	CashFlow(ctx context.Context, tenantID uuid.UUID, period reporting.Period, method reporting.CashFlowMethod) (*reporting.CashFlowReport, error)
	TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*reporting.TrialBalanceReport, error)
	Trend(ctx context.Context, tenantID uuid.UUID, metric reporting.TrendMetric, months int) ([]reporting.TrendPoint, error)
}

// Request carries the raw parameters of a report build. Only the fields relevant to Report are read.
type Request struct {
	Report     string `json:"report"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	AsOf       string `json:"as_of,omitempty"`
	Comparison string `json:"comparison,omitempty"`
	Method     string `json:"method,omitempty"`
	Metric     string `json:"metric,omitempty"`
	Months     int    `json:"months,omitempty"`
}

// Build parses the request and runs the matching engine operation.
func Build(ctx context.Context, b Builder, tenantID uuid.UUID, req Request) (any, error) {
	switch req.Report {
	case reporting.KindProfitLoss:
		period, err := reporting.ParsePeriod(req.Start, req.End)
		if err != nil {
			return nil, err
		}
		mode, err := reporting.ParseComparisonMode(req.Comparison)
		if err != nil {
			return nil, err
		}
		return b.ProfitLoss(ctx, tenantID, period, mode)
	case reporting.KindBalanceSheet:
		asOf, err := reporting.ParseDate(req.AsOf)
		if err != nil {
			return nil, err
		}
		mode, err := reporting.ParseComparisonMode(req.Comparison)
		if err != nil {
			return nil, err
		}
		return b.BalanceSheet(ctx, tenantID, asOf, mode)
	case reporting.KindCashFlow:
		period, err := reporting.ParsePeriod(req.Start, req.End)
		if err != nil {
			return nil, err
		}
		method, err := reporting.ParseCashFlowMethod(req.Method)
		if err != nil {
			return nil, err
		}
		return b.CashFlow(ctx, tenantID, period, method)
	case reporting.KindTrialBalance:
		asOf, err := reporting.ParseDate(req.AsOf)
		if err != nil {
			return nil, err
		}
		return b.TrialBalance(ctx, tenantID, asOf)
	case reporting.KindTrend:
		metric, err := reporting.ParseTrendMetric(req.Metric)
		if err != nil {
			return nil, err
		}
		return b.Trend(ctx, tenantID, metric, req.Months)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedReport, req.Report)
}
