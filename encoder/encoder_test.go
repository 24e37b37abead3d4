package encoder

import (
	"errors"
	"math"
	"testing"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/indicator"
)

var catalog = []string{"close", "ma1", "ma2", "ma3", "s1", "s2", "s3"}

func mustParams(t *testing.T, kv ...interface{}) *config.Params {
	t.Helper()
	var ps []config.Param
	for i := 0; i+1 < len(kv); i += 2 {
		ps = append(ps, config.Param{Name: kv[i].(string), Value: kv[i+1].(float64)})
	}
	p, err := config.NewParams(ps...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func snap(vals map[string]float64) *indicator.Snapshot {
	s := indicator.NewSnapshot(0, 0)
	for k, v := range vals {
		s.Set(k, v)
	}
	return s
}

func TestEncodeBinaryMostSignificantFirst(t *testing.T) {
	enc := New(Binary,
		Gt(Ind("close"), Ind("ma1")),
		Gt(Ind("ma1"), Ind("ma2")),
		Positive(Ind("s1")),
	)
	b, err := enc.Bind(nil, catalog)
	if err != nil {
		t.Fatal(err)
	}
	code, ok := b.Encode(snap(map[string]float64{"close": 10, "ma1": 9, "ma2": 11, "s1": 0.5}))
	if !ok {
		t.Fatal("all inputs defined")
	}
	// flags 1,0,1 -> 0b101
	if code != 5 {
		t.Fatalf("code = %d, want 5", code)
	}
	if k := Key(Binary, 3, code); k != "101" {
		t.Fatalf("key = %q", k)
	}
}

func TestEncodeIsPure(t *testing.T) {
	b, err := New(Binary, Gt(Ind("ma1"), Ind("ma2")), Negative(Ind("s2"))).Bind(nil, catalog)
	if err != nil {
		t.Fatal(err)
	}
	s := snap(map[string]float64{"ma1": 2, "ma2": 1, "s2": -1})
	c1, _ := b.Encode(s)
	c2, _ := b.Encode(s)
	if c1 != c2 {
		t.Fatalf("same snapshot gave %d and %d", c1, c2)
	}
	// Changing a value that does not flip any predicate keeps the code.
	c3, _ := b.Encode(snap(map[string]float64{"ma1": 5, "ma2": 1, "s2": -3}))
	if c3 != c1 {
		t.Fatalf("code changed without a predicate flip: %d vs %d", c3, c1)
	}
	c4, _ := b.Encode(snap(map[string]float64{"ma1": 0, "ma2": 1, "s2": -3}))
	if c4 == c1 {
		t.Fatal("flipping a predicate must change the code")
	}
}

func TestEncodeWarmupTreatsUndefinedAsZero(t *testing.T) {
	b, err := New(Binary, Gt(Ind("ma1"), Ind("ma2")), Positive(Ind("s1"))).Bind(nil, catalog)
	if err != nil {
		t.Fatal(err)
	}
	flags, ok := b.Flags(snap(map[string]float64{"ma1": math.NaN(), "ma2": 1, "s1": 1}))
	if ok {
		t.Fatal("NaN input must mark the code undefined")
	}
	if flags[0] != 0 || flags[1] != 1 {
		t.Fatalf("flags = %v", flags)
	}
}

func TestEncodeTernary(t *testing.T) {
	b, err := New(Ternary,
		Sign(Ind("s1"), Num(0.1)),
		Compare(Ind("ma1"), Ind("ma2"), Param("band")),
	).Bind(mustParams(t, "band", 1.0), catalog)
	if err != nil {
		t.Fatal(err)
	}
	code, ok := b.Encode(snap(map[string]float64{"s1": -1, "ma1": 10, "ma2": 9.5}))
	if !ok {
		t.Fatal("defined")
	}
	// digits: (-1+1)=0, (0+1)=1 -> 0*3+1
	if code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if got := Unpack(Ternary, 2, code); got[0] != -1 || got[1] != 0 {
		t.Fatalf("unpack = %v", got)
	}
}

func TestBindCollectsAllErrors(t *testing.T) {
	_, err := New(Binary,
		Gt(Ind("nope"), Param("missing")),
		Sign(Ind("ma1"), Num(0)),
	).Bind(mustParams(t), catalog)
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !errors.Is(err, indicator.ErrUnknownIndicator) {
		t.Fatalf("missing ErrUnknownIndicator in %v", err)
	}
	if !errors.Is(err, config.ErrUnknownParameter) {
		t.Fatalf("missing ErrUnknownParameter in %v", err)
	}
}

func TestBindRejectsEmptyAndOversized(t *testing.T) {
	if _, err := New(Binary).Bind(nil, catalog); err == nil {
		t.Fatal("empty encoder must fail")
	}
	preds := make([]Predicate, 23)
	for i := range preds {
		preds[i] = Positive(Ind("s1"))
	}
	if _, err := New(Binary, preds...).Bind(nil, catalog); err == nil {
		t.Fatal("2^23 codes must be rejected")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, radix := range []Radix{Binary, Ternary} {
		width := 6
		for code := Code(0); int(code) < Size(radix, width); code++ {
			k := Key(radix, width, code)
			got, err := ParseKey(radix, k)
			if err != nil || got != code {
				t.Fatalf("radix %d: %q -> %d, %v", radix, k, got, err)
			}
			if Pack(radix, Unpack(radix, width, code)) != code {
				t.Fatalf("pack/unpack mismatch at %d", code)
			}
		}
	}
	if _, err := ParseKey(Binary, "012"); err == nil {
		t.Fatal("digit 2 is invalid in binary")
	}
}
