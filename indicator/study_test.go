package indicator

import (
	"errors"
	"math"
	"testing"
)

func TestStudiesWarmupIsNaN(t *testing.T) {
	f := NewFrame(ramp(40, 100, 1))
	err := Compute(f,
		EMA("ma1", Close, 5),
		SMA("ma2", Close, 10),
		Derivative("ma1_slope", "ma1"),
		Lag("ma2_ago", "ma2", 2),
		Scale("top", "ma1", 1.05),
	)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	ma1, _ := f.Column("ma1")
	for i := 0; i < 4; i++ {
		if !math.IsNaN(ma1[i]) {
			t.Fatalf("ma1[%d] should be warming up, got %v", i, ma1[i])
		}
	}
	if math.IsNaN(ma1[4]) {
		t.Fatal("ma1[4] should be defined")
	}
	ma2, _ := f.Column("ma2")
	// SMA of a linear ramp lags by (period-1)/2.
	if got, want := ma2[39], 139-4.5; math.Abs(got-want) > 1e-9 {
		t.Fatalf("sma = %v, want %v", got, want)
	}
	slope, _ := f.Column("ma1_slope")
	if !math.IsNaN(slope[4]) || math.Abs(slope[39]-1) > 1e-6 {
		t.Fatalf("unexpected slope column head=%v tail=%v", slope[4], slope[39])
	}
	lag, _ := f.Column("ma2_ago")
	if lag[39] != ma2[37] {
		t.Fatal("lag misaligned")
	}
	top, _ := f.Column("top")
	if top[39] != ma1[39]*1.05 {
		t.Fatal("scale mismatch")
	}
	if got := f.FirstDefined("ma1_slope", "ma2_ago"); got != 11 {
		t.Fatalf("FirstDefined = %d, want 11", got)
	}
}

func TestFractionalPeriodBlends(t *testing.T) {
	f := NewFrame(ramp(30, 50, 2))
	if err := Compute(f,
		SMA("lo", Close, 4),
		SMA("hi", Close, 5),
		SMA("mid", Close, 4.5),
	); err != nil {
		t.Fatal(err)
	}
	lo, _ := f.Column("lo")
	hi, _ := f.Column("hi")
	mid, _ := f.Column("mid")
	if want := (lo[29] + hi[29]) / 2; math.Abs(mid[29]-want) > 1e-9 {
		t.Fatalf("mid = %v, want %v", mid[29], want)
	}
	if !math.IsNaN(mid[3]) {
		t.Fatal("blend must wait for the longer period")
	}
}

func TestStudyShortSeriesStaysUndefined(t *testing.T) {
	f := NewFrame(ramp(3, 1, 1))
	if err := Compute(f, EMA("ma", Close, 10), RSI("rsi", Close, 14), ADX("adx", 14)); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ma", "rsi", "adx"} {
		col, _ := f.Column(name)
		for i, v := range col {
			if !math.IsNaN(v) {
				t.Fatalf("%s[%d] = %v, want NaN", name, i, v)
			}
		}
	}
}

func TestStudyUnknownInput(t *testing.T) {
	f := NewFrame(ramp(3, 1, 1))
	err := Compute(f, EMA("ma", "nope", 3))
	if !errors.Is(err, ErrUnknownIndicator) {
		t.Fatalf("expected ErrUnknownIndicator, got %v", err)
	}
}

func TestSARAndMACDColumns(t *testing.T) {
	f := NewFrame(ramp(60, 100, 1))
	if err := Compute(f, SAR("sar", 0.02, 0.2), MACD("macd", Close, 12, 26, 9)); err != nil {
		t.Fatal(err)
	}
	sar, _ := f.Column("sar")
	if !math.IsNaN(sar[0]) || math.IsNaN(sar[59]) {
		t.Fatal("sar warmup handling wrong")
	}
	// Rising market: SAR trails below price.
	if sar[59] >= 159 {
		t.Fatalf("sar %v should sit below the close", sar[59])
	}
	for _, n := range []string{"macd_line", "macd_signal", "macd_hist"} {
		col, ok := f.Column(n)
		if !ok || math.IsNaN(col[59]) || !math.IsNaN(col[0]) {
			t.Fatalf("%s not populated correctly", n)
		}
	}
}

func TestStdDevAndStoch(t *testing.T) {
	f := NewFrame(ramp(40, 100, 1))
	if err := Compute(f, StdDev("std", Close, 5), Stoch("k", "d", 5, 3, 3)); err != nil {
		t.Fatal(err)
	}
	std, _ := f.Column("std")
	if !math.IsNaN(std[3]) || math.Abs(std[39]-math.Sqrt2) > 1e-9 {
		t.Fatalf("std = %v .. %v", std[3], std[39])
	}
	k, _ := f.Column("k")
	d, _ := f.Column("d")
	if !math.IsNaN(k[7]) || math.IsNaN(k[8]) {
		t.Fatalf("stoch warmup wrong: %v %v", k[7], k[8])
	}
	if math.Abs(k[39]-500.0/6) > 1e-6 || math.Abs(d[39]-500.0/6) > 1e-6 {
		t.Fatalf("stoch on a steady ramp = %v/%v", k[39], d[39])
	}
}
