package encoder

import (
	"testing"

	"github.com/evdnx/gosignal/indicator"
)

func series(vals map[string][]float64) *indicator.Snapshot {
	s := indicator.NewSnapshot(0, 0)
	for k, v := range vals {
		s.SetSeries(k, v)
	}
	return s
}

func holds(t *testing.T, p Predicate, env indicator.Env) (bool, bool) {
	t.Helper()
	c, err := BindPredicate(p, mustParams(t, "k", 2.0), catalog)
	if err != nil {
		t.Fatal(err)
	}
	return c.Holds(env)
}

func TestCrossOverAndUnder(t *testing.T) {
	up := series(map[string][]float64{"ma1": {1, 3}, "ma2": {2, 2}})
	if ok, def := holds(t, CrossOver(Ind("ma1"), Ind("ma2")), up); !def || !ok {
		t.Fatal("expected cross over")
	}
	if ok, _ := holds(t, CrossUnder(Ind("ma1"), Ind("ma2")), up); ok {
		t.Fatal("no cross under on a rising cross")
	}
	flat := series(map[string][]float64{"ma1": {3, 3}, "ma2": {2, 2}})
	if ok, _ := holds(t, CrossOver(Ind("ma1"), Ind("ma2")), flat); ok {
		t.Fatal("staying above is not a cross")
	}
	short := series(map[string][]float64{"ma1": {3}, "ma2": {2}})
	if _, def := holds(t, CrossOver(Ind("ma1"), Ind("ma2")), short); def {
		t.Fatal("cross needs one bar of history")
	}
}

func TestArithmeticAndParams(t *testing.T) {
	s := snap(map[string]float64{"ma1": 10, "ma2": 19, "close": 0})
	// ma1 * $k > ma2  ->  20 > 19
	if ok, _ := holds(t, Gt(Mul(Ind("ma1"), Param("k")), Ind("ma2")), s); !ok {
		t.Fatal("expected 20 > 19")
	}
	if _, def := holds(t, Gt(Div(Ind("ma1"), Ind("close")), Num(0)), s); def {
		t.Fatal("division by zero must be undefined")
	}
	if ok, _ := holds(t, Lt(Sub(Ind("ma1"), Ind("ma2")), Num(0)), s); !ok {
		t.Fatal("10-19 < 0")
	}
	if ok, _ := holds(t, Ge(Add(Ind("ma1"), Num(9)), Ind("ma2")), s); !ok {
		t.Fatal("10+9 >= 19")
	}
	if ok, _ := holds(t, Le(Ind("ma2"), Num(19)), s); !ok {
		t.Fatal("19 <= 19")
	}
}

func TestMaxMinPrevAndLogic(t *testing.T) {
	s := series(map[string][]float64{
		"s1": {0, 5}, "s2": {0, 7}, "s3": {0, 6}, "close": {4, 6.5},
	})
	if ok, _ := holds(t, Gt(Max(Inds("s1", "s2", "s3")...), Ind("close")), s); !ok {
		t.Fatal("max 7 > 6.5")
	}
	if ok, _ := holds(t, Lt(Min(Inds("s1", "s2", "s3")...), Ind("close")), s); !ok {
		t.Fatal("min 5 < 6.5")
	}
	if ok, _ := holds(t, Lt(Prev("close", 1), Num(5)), s); !ok {
		t.Fatal("previous close 4 < 5")
	}
	all := AllOf(Positive(Ind("s1")), Negative(Ind("s2")))
	if ok, _ := holds(t, all, s); ok {
		t.Fatal("s2 is not negative")
	}
	if ok, _ := holds(t, AnyOf(Positive(Ind("s1")), Negative(Ind("s2"))), s); !ok {
		t.Fatal("s1 is positive")
	}
	if ok, _ := holds(t, Not(all), s); !ok {
		t.Fatal("not of false")
	}
}

func TestLogicRejectsTernary(t *testing.T) {
	_, err := BindPredicate(AllOf(Sign(Ind("s1"), Num(0))), nil, catalog)
	if err == nil {
		t.Fatal("ternary inside AllOf must fail")
	}
}

func TestEntryPriceAlwaysInCatalog(t *testing.T) {
	c, err := BindPredicate(Gt(Ind("close"), Ind(indicator.EntryPrice)), nil, []string{"close"})
	if err != nil {
		t.Fatalf("entry price must be accepted: %v", err)
	}
	env := indicator.With(snap(map[string]float64{"close": 11}), indicator.EntryPrice, 10)
	if ok, _ := c.Holds(env); !ok {
		t.Fatal("11 > 10")
	}
	if got := c.Indicators(); len(got) != 2 || got[0] != "close" || got[1] != indicator.EntryPrice {
		t.Fatalf("indicators = %v", got)
	}
}

func TestCountOperand(t *testing.T) {
	s := series(map[string][]float64{
		"s1": {0, 5}, "s2": {0, 7}, "s3": {0, 6}, "close": {4, 6.5},
	})
	below := Count(
		Lt(Ind("s1"), Ind("close")),
		Lt(Ind("s2"), Ind("close")),
		Lt(Ind("s3"), Ind("close")),
	)
	v, err := BindOperand(below, nil, catalog)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.Eval(s); !ok || n != 2 {
		t.Fatalf("count = %v, %v; want 2", n, ok)
	}
	if ok, _ := holds(t, Gt(Prev("close", 0), below), s); !ok {
		t.Fatal("6.5 > 2")
	}
	if _, err := BindOperand(Count(Sign(Ind("s1"), Num(0))), nil, catalog); err == nil {
		t.Fatal("ternary predicates cannot be counted")
	}
}
