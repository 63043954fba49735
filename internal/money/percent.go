package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// GrowthRate returns the percentage change from previous to current.
//
// A zero previous value never divides: growth from zero is +100 for a positive current value,
// -100 for a negative one and 0 when both are zero. Negative previous values use |previous| as
// the base so a shrinking loss reads as positive growth.
func GrowthRate(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		switch current.Sign() {
		case 1:
			return hundred
		case -1:
			return hundred.Neg()
		default:
			return decimal.Zero
		}
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred).Round(Scale)
}

// MarginPercent returns numerator/denominator*100, or zero when the denominator is zero.
func MarginPercent(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}
	return numerator.Div(denominator).Mul(hundred).Round(Scale)
}
