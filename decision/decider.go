package decision

import (
	"errors"
	"fmt"
	"sort"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
	"go.uber.org/multierr"
)

// Outcome is one decider evaluation.
type Outcome struct {
	Verdict types.Verdict
	// Defined is false while any referenced indicator is warming up.
	Defined bool
	// Code is the looked-up code for table deciders, -1 otherwise.
	Code encoder.Code
	// Bull and Bear are the tallies of a vote.
	Bull, Bear int
	// Conflict is set when both sides qualified and the verdict was
	// forced to Hold.
	Conflict bool
}

// Decider maps an env to a verdict.
type Decider interface {
	Decide(env indicator.Env) Outcome
	Indicators() []string
}

// Spec builds a Decider once parameters and the catalog are known.
type Spec interface {
	Build(params *config.Params, catalog []string) (Decider, error)
}

// TableSpec is an explicit lookup: encoder flags → code → table cell.
// Cells come from parameters named by their keys.
type TableSpec struct {
	Encoder *encoder.Encoder
}

func (s TableSpec) Build(params *config.Params, catalog []string) (Decider, error) {
	if s.Encoder == nil {
		return nil, errors.New("table decider: nil encoder")
	}
	enc, err := s.Encoder.Bind(params, catalog)
	if err != nil {
		return nil, err
	}
	t, err := TableFromParams(params, enc.Radix(), enc.Width())
	if err != nil {
		return nil, err
	}
	return &TableDecider{enc: enc, table: t}, nil
}

// TableDecider looks the encoded snapshot up in a Table.
type TableDecider struct {
	enc   *encoder.Bound
	table *Table
}

func NewTableDecider(enc *encoder.Bound, t *Table) (*TableDecider, error) {
	if enc.Radix() != t.Radix() || enc.Width() != t.Width() {
		return nil, fmt.Errorf("table decider: encoder %d^%d does not match table %d^%d",
			enc.Radix(), enc.Width(), t.Radix(), t.Width())
	}
	return &TableDecider{enc: enc, table: t}, nil
}

func (d *TableDecider) Table() *Table { return d.table }

func (d *TableDecider) Decide(env indicator.Env) Outcome {
	code, ok := d.enc.Encode(env)
	if !ok {
		return Outcome{Code: code}
	}
	return Outcome{Verdict: d.table.Lookup(code), Defined: true, Code: code}
}

func (d *TableDecider) Indicators() []string { return d.enc.Indicators() }

// VoteSpec counts bullish and bearish sub-conditions against thresholds.
//
// Buy when bull >= BuyThreshold, Sell when bear >= SellThreshold. Both at
// once is a conflict and yields Hold, as does |bull-bear| < MinSpread.
// Nil MinSpread means no spread requirement.
type VoteSpec struct {
	Bull          []encoder.Predicate
	Bear          []encoder.Predicate
	BuyThreshold  encoder.Operand
	SellThreshold encoder.Operand
	MinSpread     encoder.Operand
}

func (s VoteSpec) Build(params *config.Params, catalog []string) (Decider, error) {
	var errs error
	if len(s.Bull) == 0 && len(s.Bear) == 0 {
		errs = multierr.Append(errs, errors.New("vote: no conditions"))
	}
	if s.BuyThreshold == nil || s.SellThreshold == nil {
		errs = multierr.Append(errs, errors.New("vote: thresholds are required"))
	}
	v := &VoteDecider{}
	refs := map[string]struct{}{}
	bindAll := func(ps []encoder.Predicate) []encoder.Condition {
		out := make([]encoder.Condition, 0, len(ps))
		for _, p := range ps {
			c, err := encoder.BindPredicate(p, params, catalog)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			for _, r := range c.Indicators() {
				refs[r] = struct{}{}
			}
			out = append(out, c)
		}
		return out
	}
	v.bull = bindAll(s.Bull)
	v.bear = bindAll(s.Bear)
	bindOp := func(op encoder.Operand) encoder.Value {
		if op == nil {
			return encoder.Value{}
		}
		val, err := encoder.BindOperand(op, params, catalog)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		for _, r := range val.Indicators() {
			refs[r] = struct{}{}
		}
		return val
	}
	v.buy = bindOp(s.BuyThreshold)
	v.sell = bindOp(s.SellThreshold)
	if s.MinSpread != nil {
		v.spread = bindOp(s.MinSpread)
		v.hasSpread = true
	}
	if errs != nil {
		return nil, errs
	}
	for r := range refs {
		v.refs = append(v.refs, r)
	}
	sort.Strings(v.refs)
	return v, nil
}

// VoteDecider is a built VoteSpec.
type VoteDecider struct {
	bull, bear []encoder.Condition
	buy, sell  encoder.Value
	spread     encoder.Value
	hasSpread  bool
	refs       []string
}

func (v *VoteDecider) Decide(env indicator.Env) Outcome {
	out := Outcome{Code: -1, Defined: true}
	count := func(cs []encoder.Condition) int {
		n := 0
		for _, c := range cs {
			ok, def := c.Holds(env)
			if !def {
				out.Defined = false
			}
			if ok {
				n++
			}
		}
		return n
	}
	out.Bull = count(v.bull)
	out.Bear = count(v.bear)
	buyT, ok1 := v.buy.Eval(env)
	sellT, ok2 := v.sell.Eval(env)
	if !ok1 || !ok2 {
		out.Defined = false
	}
	if !out.Defined {
		return out
	}
	return Tally(out, buyT, sellT, v.minSpread(env))
}

func (v *VoteDecider) minSpread(env indicator.Env) float64 {
	if !v.hasSpread {
		return 0
	}
	s, ok := v.spread.Eval(env)
	if !ok {
		return 0
	}
	return s
}

// Tally applies the vote rule to counts already stored in o.
func Tally(o Outcome, buyThreshold, sellThreshold, minSpread float64) Outcome {
	bull, bear := float64(o.Bull), float64(o.Bear)
	buy := bull >= buyThreshold
	sell := bear >= sellThreshold
	o.Verdict = types.VerdictHold
	switch {
	case buy && sell:
		o.Conflict = true
	case minSpread > 0 && abs(bull-bear) < minSpread:
	case buy:
		o.Verdict = types.VerdictBuy
	case sell:
		o.Verdict = types.VerdictSell
	}
	return o
}

func (v *VoteDecider) Indicators() []string { return append([]string(nil), v.refs...) }

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
