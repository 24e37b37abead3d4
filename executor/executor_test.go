package executor

import (
	"errors"
	"testing"

	"github.com/evdnx/gosignal/risk"
	"github.com/evdnx/gosignal/testutils"
	"github.com/evdnx/gosignal/types"
	"github.com/shopspring/decimal"
)

func bar(unix int64, low, high, close float64) types.Bar {
	return types.Bar{Unix: unix, Open: close, High: high, Low: low, Close: close, Volume: 1}
}

func TestPaperWallet_MarketRoundTrip(t *testing.T) {
	log := testutils.NewMockLogger()
	w := NewPaperWallet(1000, 0, log)

	fill, err := w.Execute(types.ActionFor(types.Buy, "test"), bar(1, 90, 110, 100))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if fill == nil || fill.Side != types.Buy || fill.Price != 100 {
		t.Fatalf("unexpected fill %+v", fill)
	}
	asset, currency := w.Balances()
	if !asset.Equal(decimal.NewFromInt(10)) || !currency.IsZero() {
		t.Fatalf("after buy asset=%s currency=%s", asset, currency)
	}

	if _, err := w.Execute(types.ActionFor(types.Sell, "test"), bar(2, 110, 130, 120)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if eq := w.Equity(0); !eq.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("equity after round trip = %s, want 1200", eq)
	}
	if w.LastTrade().Side != types.Sell {
		t.Fatalf("last trade = %v", w.LastTrade())
	}
	if log.Count("fill") != 2 {
		t.Fatalf("expected two fill logs, got %d", log.Count("fill"))
	}
}

func TestPaperWallet_FeeIsCharged(t *testing.T) {
	w := NewPaperWallet(1000, 0.01, nil)
	if _, err := w.Execute(types.ActionFor(types.Buy, ""), bar(1, 90, 110, 100)); err != nil {
		t.Fatal(err)
	}
	asset, _ := w.Balances()
	if !asset.Equal(decimal.RequireFromString("9.9")) {
		t.Fatalf("asset after 1%% fee = %s", asset)
	}
}

func TestPaperWallet_InsufficientFunds(t *testing.T) {
	w := NewPaperWallet(1000, 0, nil)
	_, err := w.Execute(types.ActionFor(types.Sell, ""), bar(1, 90, 110, 100))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if eq := w.Equity(100); !eq.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("equity should stay unchanged, got %s", eq)
	}
}

func TestPaperWallet_ThresholdOrders(t *testing.T) {
	w := NewPaperWallet(1000, 0, nil)
	order := types.Action{Kind: types.ActionThresholds, Buying: 80, Selling: 120}
	if fill, err := w.Execute(order, bar(1, 90, 110, 100)); err != nil || fill != nil {
		t.Fatalf("placing an order must not fill: %v %v", fill, err)
	}
	if fill, _ := w.Settle(bar(2, 85, 125, 100)); fill != nil {
		t.Fatalf("no asset to sell and low above buying, got %+v", fill)
	}
	fill, err := w.Settle(bar(3, 75, 95, 90))
	if err != nil || fill == nil || fill.Side != types.Buy || fill.Price != 80 {
		t.Fatalf("expected buy at 80, got %+v %v", fill, err)
	}
	if _, ok := w.Pending(); ok {
		t.Fatal("filled order must be cleared")
	}

	if _, err := w.Execute(order, bar(4, 90, 110, 100)); err != nil {
		t.Fatal(err)
	}
	fill, _ = w.Settle(bar(5, 100, 130, 125))
	if fill == nil || fill.Side != types.Sell || fill.Price != 120 {
		t.Fatalf("expected sell at 120, got %+v", fill)
	}
	if eq := w.Equity(0); !eq.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("equity = %s, want 1500", eq)
	}
}

func TestPaperWallet_RejectsInvertedThresholds(t *testing.T) {
	w := NewPaperWallet(1000, 0, nil)
	if _, err := w.Execute(types.Action{Kind: types.ActionThresholds, Buying: 120, Selling: 80}, bar(1, 90, 110, 100)); err == nil {
		t.Fatal("expected error")
	}
}

func TestPaperWallet_FixedRiskStake(t *testing.T) {
	sizer := risk.FixedRisk{MaxRisk: 0.01, StopLossPct: 0.02, Precision: 2}
	w := NewPaperWallet(1000, 0, nil, WithSizer(sizer))

	// risk $10 over a $2 stop buys 5 units for $500
	if _, err := w.Execute(types.ActionFor(types.Buy, "test"), bar(1, 90, 110, 100)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	asset, currency := w.Balances()
	if !asset.Equal(decimal.NewFromInt(5)) || !currency.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("asset=%s currency=%s", asset, currency)
	}
	if _, err := w.Execute(types.ActionFor(types.Sell, "test"), bar(2, 100, 120, 110)); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if eq := w.Equity(110); !eq.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("equity = %s, want 1050", eq)
	}
}
