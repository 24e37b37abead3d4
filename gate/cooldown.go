package gate

import (
	"errors"
	"math"
	"sort"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
	"go.uber.org/multierr"
)

// RestRule computes how many bar units to rest after a trade:
//
//	rest = max(Min, Multiplier * max(Extreme...) / entry)
//
// where entry is the price of the trade being closed. Without Multiplier
// or Extreme the rest is Min. When is an optional arming predicate; if it
// is false the trade does not arm the timer.
type RestRule struct {
	Min        encoder.Operand
	Multiplier encoder.Operand
	Extreme    []encoder.Operand
	When       encoder.Predicate
}

// CooldownSpec arms the hold-until timer after Buy and/or Sell. Unit is
// the length of one rest unit in seconds, normally the bar interval.
type CooldownSpec struct {
	Unit int64
	Buy  *RestRule
	Sell *RestRule
}

// Timer is a bound CooldownSpec.
type Timer struct {
	unit  int64
	rules map[types.Side]*boundRule
	refs  []string
}

type boundRule struct {
	min, mult encoder.Value
	extreme   encoder.Value
	scaled    bool
	when      *encoder.Condition
}

func (s CooldownSpec) Build(params *config.Params, catalog []string) (*Timer, error) {
	var errs error
	if s.Unit <= 0 {
		errs = multierr.Append(errs, errors.New("cooldown: unit must be positive"))
	}
	t := &Timer{unit: s.Unit, rules: map[types.Side]*boundRule{}}
	refs := map[string]struct{}{}
	bindOp := func(op encoder.Operand) encoder.Value {
		v, err := encoder.BindOperand(op, params, catalog)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		for _, r := range v.Indicators() {
			refs[r] = struct{}{}
		}
		return v
	}
	for _, sr := range []struct {
		side types.Side
		rule *RestRule
	}{{types.Buy, s.Buy}, {types.Sell, s.Sell}} {
		side, r := sr.side, sr.rule
		if r == nil {
			continue
		}
		if r.Min == nil {
			errs = multierr.Append(errs, errors.New("cooldown: "+string(side)+" rule needs Min"))
			continue
		}
		b := &boundRule{min: bindOp(r.Min)}
		if r.Multiplier != nil && len(r.Extreme) > 0 {
			b.mult = bindOp(r.Multiplier)
			b.extreme = bindOp(encoder.Max(r.Extreme...))
			b.scaled = true
		}
		if r.When != nil {
			c, err := encoder.BindPredicate(r.When, params, catalog)
			if err != nil {
				errs = multierr.Append(errs, err)
			}
			for _, ref := range c.Indicators() {
				refs[ref] = struct{}{}
			}
			b.when = &c
		}
		t.rules[side] = b
	}
	if errs != nil {
		return nil, errs
	}
	for r := range refs {
		t.refs = append(t.refs, r)
	}
	sort.Strings(t.refs)
	return t, nil
}

// Arm returns the new hold-until time after side fires at now, closing a
// position entered at entry. armed is false when side has no rule, the
// arming predicate fails, or an input is undefined.
func (t *Timer) Arm(side types.Side, now int64, entry float64, env indicator.Env) (holdUntil int64, armed bool) {
	if t == nil {
		return 0, false
	}
	r, ok := t.rules[side]
	if !ok {
		return 0, false
	}
	if r.when != nil {
		if holds, defined := r.when.Holds(env); !holds || !defined {
			return 0, false
		}
	}
	rest, ok := r.rest(env, entry)
	if !ok {
		return 0, false
	}
	return now + int64(math.Round(rest*float64(t.unit))), true
}

// Rest is the rest length in units for side, without arming anything.
func (t *Timer) Rest(side types.Side, entry float64, env indicator.Env) (float64, bool) {
	r, ok := t.rules[side]
	if !ok {
		return 0, false
	}
	return r.rest(env, entry)
}

func (r *boundRule) rest(env indicator.Env, entry float64) (float64, bool) {
	floor, ok := r.min.Eval(env)
	if !ok {
		return 0, false
	}
	rest := floor
	if r.scaled && entry > 0 && !math.IsInf(entry, 0) {
		mult, ok1 := r.mult.Eval(env)
		ext, ok2 := r.extreme.Eval(env)
		if ok1 && ok2 {
			rest = math.Max(floor, mult*ext/entry)
		}
	}
	if rest < 0 {
		rest = 0
	}
	return rest, true
}

func (t *Timer) Indicators() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.refs...)
}
