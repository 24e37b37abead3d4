package decision

import (
	"bytes"
	"errors"
	"testing"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalog = []string{"close", "ma1", "ma2"}

func params(t *testing.T, kv map[string]float64) *config.Params {
	t.Helper()
	var ps []config.Param
	for _, k := range []string{"10", "01", "11", "00", "buy", "sell", "spread", "unrelated"} {
		if v, ok := kv[k]; ok {
			ps = append(ps, config.Param{Name: k, Value: v})
		}
	}
	p, err := config.NewParams(ps...)
	require.NoError(t, err)
	return p
}

func env(vals map[string]float64) indicator.Env {
	s := indicator.NewSnapshot(0, 0)
	for k, v := range vals {
		s.Set(k, v)
	}
	return s
}

func TestTableDefaultsToHold(t *testing.T) {
	tbl, err := NewTable(encoder.Binary, 6)
	require.NoError(t, err)
	assert.Equal(t, 64, tbl.Size())
	for c := 0; c < tbl.Size(); c++ {
		assert.Equal(t, types.VerdictHold, tbl.Lookup(encoder.Code(c)))
	}
	assert.Equal(t, types.VerdictHold, tbl.Lookup(-1))
	assert.Equal(t, types.VerdictHold, tbl.Lookup(64))
}

func TestTableSetRejectsOutOfRange(t *testing.T) {
	tbl, err := NewTable(encoder.Ternary, 2)
	require.NoError(t, err)
	require.NoError(t, tbl.Set(8, types.VerdictSell))
	assert.Equal(t, types.VerdictSell, tbl.Lookup(8))
	assert.True(t, errors.Is(tbl.Set(9, types.VerdictBuy), ErrCodeOutOfRange))
	assert.Error(t, tbl.Set(0, types.Verdict(2)))
}

func TestTableFromParamsUsesCellKeys(t *testing.T) {
	p := params(t, map[string]float64{"10": 1, "01": -0.7, "11": 0.2, "unrelated": 5})
	tbl, err := TableFromParams(p, encoder.Binary, 2)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictBuy, tbl.Lookup(2))
	assert.Equal(t, types.VerdictSell, tbl.Lookup(1))
	assert.Equal(t, types.VerdictHold, tbl.Lookup(3))
	assert.Equal(t, types.VerdictHold, tbl.Lookup(0))
	buy, hold, sell := tbl.Counts()
	assert.Equal(t, []int{1, 2, 1}, []int{buy, hold, sell})
}

func TestTableYAMLRoundTrip(t *testing.T) {
	tbl, err := NewTable(encoder.Ternary, 3)
	require.NoError(t, err)
	require.NoError(t, tbl.Set(0, types.VerdictSell))
	require.NoError(t, tbl.Set(26, types.VerdictBuy))
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteYAML(&buf))
	assert.Contains(t, buf.String(), `"222": 1`)

	back, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.cells, back.cells)
}

func TestTableParamsAreBoundedHold(t *testing.T) {
	ps, err := TableParams(encoder.Binary, 3)
	require.NoError(t, err)
	require.Len(t, ps, 8)
	assert.Equal(t, "000", ps[0].Name)
	assert.Equal(t, "111", ps[7].Name)
	assert.Equal(t, 0.0, ps[3].Value)
	assert.Equal(t, -1.0, ps[3].Bounds.Min)
}

func TestTableDecider(t *testing.T) {
	enc := encoder.New(encoder.Binary,
		encoder.Gt(encoder.Ind("close"), encoder.Ind("ma1")),
		encoder.Gt(encoder.Ind("ma1"), encoder.Ind("ma2")),
	)
	d, err := TableSpec{Encoder: enc}.Build(params(t, map[string]float64{"10": 1, "01": -1}), catalog)
	require.NoError(t, err)

	out := d.Decide(env(map[string]float64{"close": 10, "ma1": 5, "ma2": 6}))
	assert.True(t, out.Defined)
	assert.Equal(t, encoder.Code(2), out.Code)
	assert.Equal(t, types.VerdictBuy, out.Verdict)

	out = d.Decide(env(map[string]float64{"close": 4, "ma1": 5, "ma2": 3}))
	assert.Equal(t, types.VerdictSell, out.Verdict)

	// unset cell
	out = d.Decide(env(map[string]float64{"close": 10, "ma1": 5, "ma2": 3}))
	assert.True(t, out.Defined)
	assert.Equal(t, types.VerdictHold, out.Verdict)

	// warmup
	out = d.Decide(env(map[string]float64{"close": 10, "ma1": 5}))
	assert.False(t, out.Defined)
	assert.Equal(t, types.VerdictHold, out.Verdict)
	assert.Equal(t, []string{"close", "ma1", "ma2"}, d.Indicators())
}

func TestNewTableDeciderChecksShape(t *testing.T) {
	enc, err := encoder.New(encoder.Binary, encoder.Positive(encoder.Ind("close"))).Bind(nil, catalog)
	require.NoError(t, err)
	tbl, err := NewTable(encoder.Binary, 2)
	require.NoError(t, err)
	_, err = NewTableDecider(enc, tbl)
	assert.Error(t, err)
}

func gtN(n float64) encoder.Predicate { return encoder.Gt(encoder.Ind("close"), encoder.Num(n)) }
func ltN(n float64) encoder.Predicate { return encoder.Lt(encoder.Ind("close"), encoder.Num(n)) }

func TestVoteTieBelowThresholdHolds(t *testing.T) {
	spec := VoteSpec{
		Bull:          []encoder.Predicate{gtN(1), gtN(2), gtN(3)},
		Bear:          []encoder.Predicate{ltN(100), ltN(200), ltN(300)},
		BuyThreshold:  encoder.Param("buy"),
		SellThreshold: encoder.Param("sell"),
	}
	d, err := spec.Build(params(t, map[string]float64{"buy": 4, "sell": 4}), catalog)
	require.NoError(t, err)
	out := d.Decide(env(map[string]float64{"close": 50}))
	assert.Equal(t, 3, out.Bull)
	assert.Equal(t, 3, out.Bear)
	assert.Equal(t, types.VerdictHold, out.Verdict)
	assert.False(t, out.Conflict)
}

func TestVoteBothSidesQualifyIsConflict(t *testing.T) {
	spec := VoteSpec{
		Bull:          []encoder.Predicate{gtN(1), gtN(2), gtN(3)},
		Bear:          []encoder.Predicate{ltN(100), ltN(200), ltN(300)},
		BuyThreshold:  encoder.Num(3),
		SellThreshold: encoder.Num(3),
	}
	d, err := spec.Build(nil, catalog)
	require.NoError(t, err)
	out := d.Decide(env(map[string]float64{"close": 50}))
	assert.True(t, out.Conflict)
	assert.Equal(t, types.VerdictHold, out.Verdict)
}

func TestVoteBuySellAndSpread(t *testing.T) {
	spec := VoteSpec{
		Bull:          []encoder.Predicate{gtN(1), gtN(2), gtN(3), gtN(4)},
		Bear:          []encoder.Predicate{ltN(100), ltN(2)},
		BuyThreshold:  encoder.Num(3),
		SellThreshold: encoder.Num(2),
		MinSpread:     encoder.Param("spread"),
	}
	d, err := spec.Build(params(t, map[string]float64{"spread": 2}), catalog)
	require.NoError(t, err)

	out := d.Decide(env(map[string]float64{"close": 50}))
	assert.Equal(t, types.VerdictBuy, out.Verdict)

	// bull 1 (>1 only), bear 2 => sell, spread 1 < 2 => hold
	out = d.Decide(env(map[string]float64{"close": 1.5}))
	assert.Equal(t, 1, out.Bull)
	assert.Equal(t, 2, out.Bear)
	assert.Equal(t, types.VerdictHold, out.Verdict)

	// bull 0, bear 2 => sell
	out = d.Decide(env(map[string]float64{"close": 0.5}))
	assert.Equal(t, types.VerdictSell, out.Verdict)
}

func TestVoteBuildCollectsErrors(t *testing.T) {
	spec := VoteSpec{
		Bull:         []encoder.Predicate{encoder.Gt(encoder.Ind("nope"), encoder.Num(1))},
		BuyThreshold: encoder.Param("missing"),
	}
	_, err := spec.Build(nil, catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Contains(t, err.Error(), "thresholds")
}

func TestVoteUndefinedHolds(t *testing.T) {
	spec := VoteSpec{
		Bull:          []encoder.Predicate{gtN(1)},
		BuyThreshold:  encoder.Num(1),
		SellThreshold: encoder.Num(1),
	}
	d, err := spec.Build(nil, catalog)
	require.NoError(t, err)
	out := d.Decide(env(nil))
	assert.False(t, out.Defined)
	assert.Equal(t, types.VerdictHold, out.Verdict)
}
