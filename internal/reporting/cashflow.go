package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/finreports/internal/ledger"
	"github.com/odyssey-erp/finreports/internal/money"
)

// CashFlowMethod selects how operating cash flow is derived.
type CashFlowMethod string

const (
	CashFlowDirect   CashFlowMethod = "direct"
	CashFlowIndirect CashFlowMethod = "indirect"
)

// ParseCashFlowMethod accepts "direct" or "indirect"; blank defaults to indirect.
func ParseCashFlowMethod(raw string) (CashFlowMethod, error) {
	switch CashFlowMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CashFlowIndirect:
		return CashFlowIndirect, nil
	case CashFlowDirect:
		return CashFlowDirect, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCashFlowMethod, raw)
	}
}

// Cash flow line labels.
const (
	LineNetIncome             = "Net Income"
	LineDepreciation          = "Depreciation"
	LineReceivablesChange     = "Change in Accounts Receivable"
	LineReceiptsFromCustomers = "Receipts from Customers"
	LinePaymentsToSuppliers   = "Payments to Suppliers"
	LinePaymentsToEmployees   = "Payments to Employees"
	LineTaxesPaid             = "Taxes Paid"
	LineOtherOperating        = "Other Operating Cash Flows"
	LineInvesting             = "Investing Activities"
	LineFinancing             = "Financing Activities"
)

var directOperatingLines = map[ledger.PaymentCategory]string{
	ledger.PaymentCustomer:  LineReceiptsFromCustomers,
	ledger.PaymentSupplier:  LinePaymentsToSuppliers,
	ledger.PaymentPayroll:   LinePaymentsToEmployees,
	ledger.PaymentTax:       LineTaxesPaid,
	ledger.PaymentOperating: LineOtherOperating,
	ledger.PaymentOther:     LineOtherOperating,
}

// CashFlowReport explains the change in cash over a period.
// EndingCash is always BeginningCash + NetCashFlow; Reconciled tells whether that agrees with the
// cash actually recorded at period end.
type CashFlowReport struct {
	TenantID         uuid.UUID      `json:"tenant_id"`
	Period           Period         `json:"period"`
	Currency         string         `json:"currency"`
	Method           CashFlowMethod `json:"method"`
	Operating        Breakdown      `json:"operating"`
	Investing        Breakdown      `json:"investing"`
	Financing        Breakdown      `json:"financing"`
	NetCashFlow      money.Money    `json:"net_cash_flow"`
	BeginningCash    money.Money    `json:"beginning_cash"`
	EndingCash       money.Money    `json:"ending_cash"`
	LedgerEndingCash money.Money    `json:"ledger_ending_cash"`
	Reconciled       bool           `json:"reconciled"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

func (s scope) cashFlow(ctx context.Context, p Period, method CashFlowMethod) (*CashFlowReport, error) {
	opening := p.Start.AddDate(0, 0, -1)
	var (
		payments                []ledger.PaymentFact
		beginning, ledgerEnding money.Money
		operating               Breakdown
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		beginning, err = s.cashBalance(gctx, opening)
		return err
	})
	g.Go(func() error {
		var err error
		ledgerEnding, err = s.cashBalance(gctx, p.End)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.source.Payments(gctx, s.tenantID, p.Range())
		return sourceErr("payments", err)
	})
	if method == CashFlowIndirect {
		g.Go(func() error {
			var err error
			operating, err = s.indirectOperating(gctx, p, opening)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if method == CashFlowDirect {
		operating = s.directOperating(payments)
	}
	investing, financing := s.investingFinancing(payments)
	if err := verifySections("cash_flow", map[string]Breakdown{
		"operating": operating,
		"investing": investing,
		"financing": financing,
	}); err != nil {
		return nil, err
	}

	net := operating.Total.Add(investing.Total).Add(financing.Total)
	ending := beginning.Add(net)
	return &CashFlowReport{
		TenantID:         s.tenantID,
		Period:           p,
		Currency:         s.currency(),
		Method:           method,
		Operating:        operating,
		Investing:        investing,
		Financing:        financing,
		NetCashFlow:      net,
		BeginningCash:    beginning,
		EndingCash:       ending,
		LedgerEndingCash: ledgerEnding,
		Reconciled:       ending.WithinEpsilon(ledgerEnding),
	}, nil
}

// indirectOperating starts from net income, adds back non-cash items and removes the growth in
// receivables between the opening day and period end.
func (s scope) indirectOperating(ctx context.Context, p Period, opening time.Time) (Breakdown, error) {
	var (
		figures         plFigures
		arOpen, arClose money.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		figures, err = s.profitLossFigures(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		arOpen, err = s.receivables(gctx, opening)
		return err
	})
	g.Go(func() error {
		var err error
		arClose, err = s.receivables(gctx, p.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return Breakdown{}, err
	}
	netIncome := figures.revenue.Total.Sub(figures.totalExpenses())
	return NewBreakdown(s.currency(),
		Entry{Category: LineNetIncome, Amount: netIncome},
		Entry{Category: LineDepreciation, Amount: money.Zero(s.currency())},
		Entry{Category: LineReceivablesChange, Amount: arClose.Sub(arOpen).Neg()},
	), nil
}

func (s scope) directOperating(payments []ledger.PaymentFact) Breakdown {
	sums := make(map[string]decimal.Decimal)
	for _, pay := range payments {
		line, ok := directOperatingLines[pay.Category]
		if !ok {
			continue
		}
		sums[line] = sums[line].Add(pay.Signed())
	}
	b := breakdownBuilder{currency: s.currency()}
	for _, line := range []string{LineReceiptsFromCustomers, LinePaymentsToSuppliers, LinePaymentsToEmployees, LineTaxesPaid, LineOtherOperating} {
		b.add(line, s.money(sums[line]))
	}
	return b.build()
}

func (s scope) investingFinancing(payments []ledger.PaymentFact) (investing, financing Breakdown) {
	inv, fin := decimal.Zero, decimal.Zero
	for _, pay := range payments {
		switch pay.Category {
		case ledger.PaymentInvesting:
			inv = inv.Add(pay.Signed())
		case ledger.PaymentFinancing:
			fin = fin.Add(pay.Signed())
		}
	}
	investing = NewBreakdown(s.currency(), Entry{Category: LineInvesting, Amount: s.money(inv)})
	financing = NewBreakdown(s.currency(), Entry{Category: LineFinancing, Amount: s.money(fin)})
	return investing, financing
}
