// Package reporting turns ledger facts into financial statements: profit and loss, balance sheet,
// cash flow, trial balance, comparisons and monthly trends.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/ledger"
)

// Report kinds, used for metrics, logging and export dispatch.
const (
	KindProfitLoss   = "profit_loss"
	KindBalanceSheet = "balance_sheet"
	KindCashFlow     = "cash_flow"
	KindTrialBalance = "trial_balance"
	KindTrend        = "trend"
)

// Build outcomes reported to the Observer.
const (
	OutcomeOK        = "ok"
	OutcomeCanceled  = "canceled"
	OutcomeLedger    = "ledger_error"
	OutcomeInvariant = "invariant_error"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

const (
	defaultTrendConcurrency = 4
	defaultMaxTrendWindow   = 60
)

// Observer receives one call per finished build.
type Observer interface {
	ObserveBuild(report, outcome string, elapsed time.Duration)
}

// Options tunes an Engine. Zero values fall back to defaults.
type Options struct {
	Logger           *slog.Logger
	Policies         PolicySource
	Observer         Observer
	TrendConcurrency int
	MaxTrendWindow   int
	BuildTimeout     time.Duration
	Now              func() time.Time
}

// Engine builds reports from a ledger source. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	source           ledger.Source
	policies         PolicySource
	logger           *slog.Logger
	observer         Observer
	trendConcurrency int
	maxTrendWindow   int
	buildTimeout     time.Duration
	now              func() time.Time
}

// NewEngine constructs the engine.
func NewEngine(source ledger.Source, opts Options) *Engine {
	e := &Engine{
		source:           source,
		policies:         opts.Policies,
		logger:           opts.Logger,
		observer:         opts.Observer,
		trendConcurrency: opts.TrendConcurrency,
		maxTrendWindow:   opts.MaxTrendWindow,
		buildTimeout:     opts.BuildTimeout,
		now:              opts.Now,
	}
	if e.policies == nil {
		e.policies = StaticPolicy(DefaultPolicy())
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.trendConcurrency <= 0 {
		e.trendConcurrency = defaultTrendConcurrency
	}
	if e.maxTrendWindow <= 0 {
		e.maxTrendWindow = defaultMaxTrendWindow
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// MaxTrendWindow exposes the configured trend window limit.
func (e *Engine) MaxTrendWindow() int { return e.maxTrendWindow }

// ProfitLoss builds the income statement for period, optionally compared with the preceding
// period or the same period a year earlier.
func (e *Engine) ProfitLoss(ctx context.Context, tenantID uuid.UUID, period Period, mode ComparisonMode) (*ProfitLossReport, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	compare := mode != "" && mode != ComparisonNone
	var previousPeriod Period
	if compare {
		var err error
		if previousPeriod, err = comparisonPeriod(period, mode); err != nil {
			return nil, err
		}
	}

	var report *ProfitLossReport
	err := e.run(ctx, KindProfitLoss, tenantID, func(ctx context.Context, s scope) error {
		var previous *ProfitLossReport
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			report, err = s.profitLoss(gctx, period)
			return err
		})
		if compare {
			g.Go(func() error {
				var err error
				previous, err = s.profitLoss(gctx, previousPeriod)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if compare {
			report.Comparison = compareProfitLoss(mode, report, previous)
		}
		report.GeneratedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// BalanceSheet builds the position as of asOf, optionally compared with one month or one year
// earlier.
func (e *Engine) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time, mode ComparisonMode) (*BalanceSheetReport, error) {
	asOf = Day(asOf)
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: missing as-of date", ErrInvalidPeriod)
	}
	compare := mode != "" && mode != ComparisonNone
	var previousDate time.Time
	if compare {
		var err error
		if previousDate, err = comparisonDate(asOf, mode); err != nil {
			return nil, err
		}
	}

	var report *BalanceSheetReport
	err := e.run(ctx, KindBalanceSheet, tenantID, func(ctx context.Context, s scope) error {
		var previous *BalanceSheetReport
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			report, err = s.balanceSheet(gctx, asOf)
			return err
		})
		if compare {
			g.Go(func() error {
				var err error
				previous, err = s.balanceSheet(gctx, previousDate)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if compare {
			report.Comparison = compareBalanceSheet(mode, report, previous)
		}
		report.GeneratedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// CashFlow builds the cash flow statement with the direct or indirect method.
func (e *Engine) CashFlow(ctx context.Context, tenantID uuid.UUID, period Period, method CashFlowMethod) (*CashFlowReport, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	method, err := ParseCashFlowMethod(string(method))
	if err != nil {
		return nil, err
	}
	var report *CashFlowReport
	err = e.run(ctx, KindCashFlow, tenantID, func(ctx context.Context, s scope) error {
		var err error
		if report, err = s.cashFlow(ctx, period, method); err != nil {
			return err
		}
		report.GeneratedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// TrialBalance lists account balances as of asOf.
func (e *Engine) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*TrialBalanceReport, error) {
	asOf = Day(asOf)
	if asOf.IsZero() {
		return nil, fmt.Errorf("%w: missing as-of date", ErrInvalidPeriod)
	}
	var report *TrialBalanceReport
	err := e.run(ctx, KindTrialBalance, tenantID, func(ctx context.Context, s scope) error {
		var err error
		if report, err = s.trialBalance(ctx, asOf); err != nil {
			return err
		}
		report.GeneratedAt = e.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Trend samples metric over the last months calendar months, the current month included.
func (e *Engine) Trend(ctx context.Context, tenantID uuid.UUID, metric TrendMetric, months int) ([]TrendPoint, error) {
	metric, err := ParseTrendMetric(string(metric))
	if err != nil {
		return nil, err
	}
	if months < 1 || months > e.maxTrendWindow {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidTrendWindow, months, e.maxTrendWindow)
	}
	anchor := e.now()
	var points []TrendPoint
	err = e.run(ctx, KindTrend, tenantID, func(ctx context.Context, s scope) error {
		var err error
		points, err = buildSeries(ctx, anchor, months, e.trendConcurrency, s.trendMeasure(metric))
		return err
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// run resolves the tenant policy, applies the build timeout, and reports the outcome.
// A failed build never returns a partial report.
func (e *Engine) run(ctx context.Context, kind string, tenantID uuid.UUID, build func(context.Context, scope) error) error {
	started := time.Now()
	if e.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.buildTimeout)
		defer cancel()
	}
	err := e.execute(ctx, tenantID, build)
	outcome := Outcome(err)
	if e.observer != nil {
		e.observer.ObserveBuild(kind, outcome, time.Since(started))
	}
	e.logFailure(ctx, kind, tenantID, err)
	return err
}

func (e *Engine) execute(ctx context.Context, tenantID uuid.UUID, build func(context.Context, scope) error) error {
	if err := ctx.Err(); err != nil {
		return canceled(err)
	}
	policy, err := e.policies.Policy(ctx, tenantID)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(ctx.Err())
		}
		return fmt.Errorf("reporting: resolve policy: %w", err)
	}
	err = build(ctx, scope{source: e.source, tenantID: tenantID, policy: policy.normalised()})
	if err != nil && ctx.Err() != nil {
		return canceled(ctx.Err())
	}
	return err
}

func (e *Engine) logFailure(ctx context.Context, kind string, tenantID uuid.UUID, err error) {
	if err == nil {
		return
	}
	attrs := []any{slog.String("report", kind), slog.String("tenant_id", tenantID.String()), slog.Any("error", err)}
	var aggErr *AggregationError
	var srcErr *LedgerSourceError
	switch {
	case errors.As(err, &aggErr):
		e.logger.ErrorContext(ctx, "report invariant violated", append(attrs, slog.String("section", aggErr.Section))...)
	case errors.As(err, &srcErr):
		e.logger.WarnContext(ctx, "ledger source failed", append(attrs, slog.String("op", srcErr.Op))...)
	case errors.Is(err, ErrBuildCanceled):
		e.logger.DebugContext(ctx, "report build cancelled", attrs...)
	default:
		e.logger.WarnContext(ctx, "report build failed", attrs...)
	}
}

// Outcome classifies a build error for metrics.
func Outcome(err error) string {
	var aggErr *AggregationError
	var srcErr *LedgerSourceError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrBuildCanceled):
		return OutcomeCanceled
	case errors.As(err, &aggErr):
		return OutcomeInvariant
	case errors.As(err, &srcErr):
		return OutcomeLedger
	case IsInvalidInput(err):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// IsInvalidInput reports whether err was caused by caller-supplied parameters.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownComparisonMode) ||
		errors.Is(err, ErrUnknownCashFlowMethod) ||
		errors.Is(err, ErrUnknownTrendMetric) ||
		errors.Is(err, ErrInvalidTrendWindow)
}

func canceled(cause error) error {
	return fmt.Errorf("%w: %w", ErrBuildCanceled, cause)
}
