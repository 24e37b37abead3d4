// Package regime holds the only cross-tick market state of the engine: the
// current regime label and the rules that move it.
package regime

import (
	"errors"
	"sort"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
	"go.uber.org/multierr"
)

type Regime int8

const (
	Unset Regime = iota
	Bull
	Bear
	Trending
	Channeling
)

func (r Regime) String() string {
	switch r {
	case Bull:
		return "bull"
	case Bear:
		return "bear"
	case Trending:
		return "trending"
	case Channeling:
		return "channeling"
	}
	return "unset"
}

// Transition is the result of one tracker evaluation. Override is None
// unless entering the regime forces a market action.
type Transition struct {
	From     Regime
	To       Regime
	Override types.Side
}

func (t Transition) Changed() bool { return t.From != t.To }

// Tracker decides the next regime. It is stateless: the current regime is
// passed in and the caller stores the result.
type Tracker interface {
	Next(current Regime, env indicator.Env) (Transition, bool)
	Indicators() []string
}

// Spec builds a Tracker against a parameter set and indicator catalog.
type Spec interface {
	Build(params *config.Params, catalog []string) (Tracker, error)
}

// TrendSpec is the bull/bear detector: a bar whose low clears the long
// average enters Bull with an override Buy, a bar whose high is under it
// enters Bear with an override Sell.
type TrendSpec struct {
	Low  encoder.Operand
	High encoder.Operand
	Long encoder.Operand
}

// DefaultTrend compares the bar range against long.
func DefaultTrend(long string) TrendSpec {
	return TrendSpec{
		Low:  encoder.Ind(indicator.Low),
		High: encoder.Ind(indicator.High),
		Long: encoder.Ind(long),
	}
}

func (s TrendSpec) Build(params *config.Params, catalog []string) (Tracker, error) {
	b := newBinder(params, catalog)
	t := &trendTracker{
		low:  b.value("low", s.Low),
		high: b.value("high", s.High),
		long: b.value("long", s.Long),
	}
	if b.errs != nil {
		return nil, b.errs
	}
	t.refs = b.indicators()
	return t, nil
}

type trendTracker struct {
	low, high, long encoder.Value
	refs            []string
}

func (t *trendTracker) Next(cur Regime, env indicator.Env) (Transition, bool) {
	tr := Transition{From: cur, To: cur}
	low, ok1 := t.low.Eval(env)
	high, ok2 := t.high.Eval(env)
	long, ok3 := t.long.Eval(env)
	if !ok1 || !ok2 || !ok3 {
		return tr, false
	}
	switch {
	case low > long && cur != Bull:
		tr.To, tr.Override = Bull, types.Buy
	case high < long && cur != Bear:
		tr.To, tr.Override = Bear, types.Sell
	}
	return tr, true
}

func (t *trendTracker) Indicators() []string { return append([]string(nil), t.refs...) }

// StrengthSpec labels the market Trending while Measure >= Threshold and
// Channeling otherwise. It never overrides.
type StrengthSpec struct {
	Measure   encoder.Operand
	Threshold encoder.Operand
}

func (s StrengthSpec) Build(params *config.Params, catalog []string) (Tracker, error) {
	b := newBinder(params, catalog)
	t := &strengthTracker{
		measure:   b.value("measure", s.Measure),
		threshold: b.value("threshold", s.Threshold),
	}
	if b.errs != nil {
		return nil, b.errs
	}
	t.refs = b.indicators()
	return t, nil
}

type strengthTracker struct {
	measure, threshold encoder.Value
	refs               []string
}

func (t *strengthTracker) Next(cur Regime, env indicator.Env) (Transition, bool) {
	tr := Transition{From: cur, To: cur}
	m, ok1 := t.measure.Eval(env)
	th, ok2 := t.threshold.Eval(env)
	if !ok1 || !ok2 {
		return tr, false
	}
	if m >= th {
		tr.To = Trending
	} else {
		tr.To = Channeling
	}
	return tr, true
}

func (t *strengthTracker) Indicators() []string { return append([]string(nil), t.refs...) }

type binder struct {
	params  *config.Params
	catalog []string
	refs    map[string]struct{}
	errs    error
}

func newBinder(params *config.Params, catalog []string) *binder {
	return &binder{params: params, catalog: catalog, refs: map[string]struct{}{}}
}

func (b *binder) value(field string, op encoder.Operand) encoder.Value {
	if op == nil {
		b.errs = multierr.Append(b.errs, errors.New("regime: "+field+" is required"))
		return encoder.Value{}
	}
	v, err := encoder.BindOperand(op, b.params, b.catalog)
	if err != nil {
		b.errs = multierr.Append(b.errs, err)
	}
	for _, r := range v.Indicators() {
		b.refs[r] = struct{}{}
	}
	return v
}

func (b *binder) indicators() []string {
	out := make([]string, 0, len(b.refs))
	for r := range b.refs {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
