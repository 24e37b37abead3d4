// Package encoder turns an indicator snapshot into a compact discrete code
// by evaluating an ordered list of comparisons.
package encoder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/indicator"
	"go.uber.org/multierr"
)

// valueFn evaluates an operand `ago` bars back.
type valueFn func(env indicator.Env, ago int) (float64, bool)

// binder resolves parameter and indicator names once, at construction.
type binder struct {
	params  *config.Params
	catalog map[string]struct{}
	refs    map[string]struct{}
	errs    error
}

func newBinder(params *config.Params, catalog []string) *binder {
	b := &binder{
		params:  params,
		catalog: make(map[string]struct{}, len(catalog)+1),
		refs:    make(map[string]struct{}),
	}
	for _, n := range catalog {
		b.catalog[n] = struct{}{}
	}
	b.catalog[indicator.EntryPrice] = struct{}{}
	return b
}

func (b *binder) indicator(name string) {
	if _, ok := b.catalog[name]; !ok {
		b.errs = multierr.Append(b.errs, fmt.Errorf("%w: %q", indicator.ErrUnknownIndicator, name))
		return
	}
	b.refs[name] = struct{}{}
}

func (b *binder) param(name string) float64 {
	v, err := b.params.Get(name)
	if err != nil {
		b.errs = multierr.Append(b.errs, err)
		return math.NaN()
	}
	return v
}

func (b *binder) fail(err error) {
	b.errs = multierr.Append(b.errs, err)
}

// indicators returns the referenced indicator names, sorted. The
// engine-supplied entry price is listed when read.
func (b *binder) indicators() []string {
	out := make([]string, 0, len(b.refs))
	for n := range b.refs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Operand is one side of a comparison: an indicator, a constant, a tuned
// parameter or arithmetic over those.
type Operand interface {
	bind(b *binder) valueFn
	String() string
}

type indOperand struct {
	name string
	lag  int
}

// Ind refers to the current value of an indicator.
func Ind(name string) Operand { return indOperand{name: name} }

// Prev refers to an indicator n bars back.
func Prev(name string, n int) Operand { return indOperand{name: name, lag: n} }

func (o indOperand) bind(b *binder) valueFn {
	b.indicator(o.name)
	if o.lag < 0 {
		b.fail(fmt.Errorf("operand %s: negative lag", o))
	}
	return func(env indicator.Env, ago int) (float64, bool) {
		return env.At(o.name, ago+o.lag)
	}
}

func (o indOperand) String() string {
	if o.lag == 0 {
		return o.name
	}
	return fmt.Sprintf("%s[-%d]", o.name, o.lag)
}

type numOperand float64

// Num is a literal constant.
func Num(v float64) Operand { return numOperand(v) }

func (o numOperand) bind(*binder) valueFn {
	v := float64(o)
	return func(indicator.Env, int) (float64, bool) { return v, true }
}

func (o numOperand) String() string { return fmt.Sprintf("%g", float64(o)) }

type paramOperand string

// Param is a tuned value looked up in the parameter set at bind time.
func Param(name string) Operand { return paramOperand(name) }

func (o paramOperand) bind(b *binder) valueFn {
	v := b.param(string(o))
	return func(indicator.Env, int) (float64, bool) { return v, !math.IsNaN(v) }
}

func (o paramOperand) String() string { return "$" + string(o) }

type arith struct {
	op   byte
	a, b Operand
}

// Mul is a*b.
func Mul(a, b Operand) Operand { return arith{op: '*', a: a, b: b} }

// Div is a/b; division by zero is undefined.
func Div(a, b Operand) Operand { return arith{op: '/', a: a, b: b} }

// Add is a+b.
func Add(a, b Operand) Operand { return arith{op: '+', a: a, b: b} }

// Sub is a-b.
func Sub(a, b Operand) Operand { return arith{op: '-', a: a, b: b} }

func (o arith) bind(b *binder) valueFn {
	fa, fb := o.a.bind(b), o.b.bind(b)
	op := o.op
	return func(env indicator.Env, ago int) (float64, bool) {
		x, ok := fa(env, ago)
		if !ok {
			return math.NaN(), false
		}
		y, ok := fb(env, ago)
		if !ok {
			return math.NaN(), false
		}
		switch op {
		case '*':
			return x * y, true
		case '/':
			if y == 0 {
				return math.NaN(), false
			}
			return x / y, true
		case '+':
			return x + y, true
		}
		return x - y, true
	}
}

func (o arith) String() string { return fmt.Sprintf("(%s %c %s)", o.a, o.op, o.b) }

type extreme struct {
	max bool
	ops []Operand
}

// Max is the largest of ops; undefined if any is undefined.
func Max(ops ...Operand) Operand { return extreme{max: true, ops: ops} }

// Min is the smallest of ops; undefined if any is undefined.
func Min(ops ...Operand) Operand { return extreme{ops: ops} }

func (o extreme) bind(b *binder) valueFn {
	if len(o.ops) == 0 {
		b.fail(fmt.Errorf("%s: no operands", o))
	}
	fns := make([]valueFn, len(o.ops))
	for i, op := range o.ops {
		fns[i] = op.bind(b)
	}
	isMax := o.max
	return func(env indicator.Env, ago int) (float64, bool) {
		best := math.NaN()
		for i, fn := range fns {
			v, ok := fn(env, ago)
			if !ok {
				return math.NaN(), false
			}
			if i == 0 || (isMax && v > best) || (!isMax && v < best) {
				best = v
			}
		}
		return best, len(fns) > 0
	}
}

func (o extreme) String() string {
	name := "min"
	if o.max {
		name = "max"
	}
	return fmt.Sprintf("%s%v", name, o.ops)
}

type counter struct {
	preds []Predicate
}

// Count is the number of ps that hold on the current bar. It is only
// defined at the current bar and when every predicate is defined.
func Count(ps ...Predicate) Operand { return counter{preds: ps} }

func (o counter) bind(b *binder) valueFn {
	if len(o.preds) == 0 {
		b.fail(fmt.Errorf("%s: no predicates", o))
	}
	fns := make([]condFn, len(o.preds))
	for i, p := range o.preds {
		if p.Ternary() {
			b.fail(fmt.Errorf("%s: ternary predicate %s cannot be counted", o, p))
		}
		fns[i] = p.bind(b)
	}
	return func(env indicator.Env, ago int) (float64, bool) {
		if ago != 0 {
			return math.NaN(), false
		}
		n := 0
		for _, fn := range fns {
			f, ok := fn(env)
			if !ok {
				return math.NaN(), false
			}
			if f == 1 {
				n++
			}
		}
		return float64(n), true
	}
}

func (o counter) String() string {
	parts := make([]string, len(o.preds))
	for i, p := range o.preds {
		parts[i] = p.String()
	}
	return "count[" + strings.Join(parts, ", ") + "]"
}

// Inds is a convenience for Ind over several names.
func Inds(names ...string) []Operand {
	out := make([]Operand, len(names))
	for i, n := range names {
		out[i] = Ind(n)
	}
	return out
}

// Value is a bound operand.
type Value struct {
	fn   valueFn
	refs []string
}

// BindOperand resolves op against params and the indicator catalog.
func BindOperand(op Operand, params *config.Params, catalog []string) (Value, error) {
	b := newBinder(params, catalog)
	fn := op.bind(b)
	if b.errs != nil {
		return Value{}, b.errs
	}
	return Value{fn: fn, refs: b.indicators()}, nil
}

// Eval returns the current value and whether it is defined.
func (v Value) Eval(env indicator.Env) (float64, bool) {
	if v.fn == nil {
		return math.NaN(), false
	}
	return v.fn(env, 0)
}

// Indicators lists the indicator names v reads.
func (v Value) Indicators() []string { return append([]string(nil), v.refs...) }
