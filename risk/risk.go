// Package risk sizes the quote-currency stake a Buy commits.
package risk

import "github.com/shopspring/decimal"

// Sizer returns how much of currency to spend buying at price.
type Sizer interface {
	Stake(currency, price decimal.Decimal) decimal.Decimal
}

// AllIn spends everything.
type AllIn struct{}

func (AllIn) Stake(currency, _ decimal.Decimal) decimal.Decimal { return currency }

// FixedRisk sizes the position so that a stop StopLossPct below entry
// loses MaxRisk of the available currency. The quantity is floored to
// Precision decimals and the stake never exceeds currency.
type FixedRisk struct {
	MaxRisk     float64
	StopLossPct float64
	Precision   int32
}

func (f FixedRisk) Stake(currency, price decimal.Decimal) decimal.Decimal {
	if f.StopLossPct <= 0 || f.MaxRisk <= 0 || !price.IsPositive() {
		return decimal.Zero
	}
	riskAmt := currency.Mul(decimal.NewFromFloat(f.MaxRisk))
	slDist := price.Mul(decimal.NewFromFloat(f.StopLossPct))
	qty := riskAmt.Div(slDist).RoundFloor(f.Precision)
	stake := qty.Mul(price)
	if stake.GreaterThan(currency) {
		return currency
	}
	return stake
}
