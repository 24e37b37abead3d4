package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFixedRiskBasic(t *testing.T) {
	// risk $100, SL $1.5 => raw 66.666.. floored to 66.66
	s := FixedRisk{MaxRisk: 0.01, StopLossPct: 0.015, Precision: 2}
	got := s.Stake(decimal.NewFromInt(10_000), decimal.NewFromInt(100))
	if !got.Equal(decimal.NewFromInt(6666)) {
		t.Fatalf("unexpected stake: %s", got)
	}
}

func TestFixedRiskZeroStopLoss(t *testing.T) {
	s := FixedRisk{MaxRisk: 0.02, Precision: 2}
	if got := s.Stake(decimal.NewFromInt(5000), decimal.NewFromInt(50)); !got.IsZero() {
		t.Fatalf("expected 0 without a stop distance, got %s", got)
	}
}

func TestFixedRiskCapsAtCurrency(t *testing.T) {
	// 50% risk with a 1% stop asks for 50x the balance
	s := FixedRisk{MaxRisk: 0.5, StopLossPct: 0.01, Precision: 4}
	got := s.Stake(decimal.NewFromInt(1000), decimal.NewFromInt(20))
	if !got.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("stake = %s, want 1000", got)
	}
}

func TestAllIn(t *testing.T) {
	got := AllIn{}.Stake(decimal.NewFromFloat(12.5), decimal.NewFromInt(3))
	if !got.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("stake = %s", got)
	}
}
