package encoder

import (
	"fmt"
	"strings"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/indicator"
)

// Flag is one position of a discrete code: 0/1 for binary predicates,
// -1/0/1 for ternary ones.
type Flag int8

type condFn func(env indicator.Env) (Flag, bool)

// Predicate is a pure comparison over the snapshot.
type Predicate interface {
	bind(b *binder) condFn
	// Ternary reports whether the predicate can yield -1.
	Ternary() bool
	String() string
}

type cmpKind int

const (
	cmpGt cmpKind = iota
	cmpGe
	cmpLt
	cmpLe
)

type comparison struct {
	kind cmpKind
	a, b Operand
}

// Gt holds when a > b.
func Gt(a, b Operand) Predicate { return comparison{kind: cmpGt, a: a, b: b} }

// Ge holds when a >= b.
func Ge(a, b Operand) Predicate { return comparison{kind: cmpGe, a: a, b: b} }

// Lt holds when a < b.
func Lt(a, b Operand) Predicate { return comparison{kind: cmpLt, a: a, b: b} }

// Le holds when a <= b.
func Le(a, b Operand) Predicate { return comparison{kind: cmpLe, a: a, b: b} }

// Positive holds when a > 0.
func Positive(a Operand) Predicate { return Gt(a, Num(0)) }

// Negative holds when a < 0.
func Negative(a Operand) Predicate { return Lt(a, Num(0)) }

func (c comparison) bind(b *binder) condFn {
	fa, fb := c.a.bind(b), c.b.bind(b)
	kind := c.kind
	return func(env indicator.Env) (Flag, bool) {
		x, ok := fa(env, 0)
		if !ok {
			return 0, false
		}
		y, ok := fb(env, 0)
		if !ok {
			return 0, false
		}
		return boolFlag(compare(kind, x, y)), true
	}
}

func compare(kind cmpKind, x, y float64) bool {
	switch kind {
	case cmpGt:
		return x > y
	case cmpGe:
		return x >= y
	case cmpLt:
		return x < y
	}
	return x <= y
}

func (c comparison) Ternary() bool { return false }

func (c comparison) String() string {
	op := [...]string{">", ">=", "<", "<="}[c.kind]
	return fmt.Sprintf("%s %s %s", c.a, op, c.b)
}

type cross struct {
	up   bool
	a, b Operand
}

// CrossOver holds on the bar where a moves from at-or-below b to above it.
func CrossOver(a, b Operand) Predicate { return cross{up: true, a: a, b: b} }

// CrossUnder holds on the bar where a moves from at-or-above b to below it.
func CrossUnder(a, b Operand) Predicate { return cross{a: a, b: b} }

func (c cross) bind(b *binder) condFn {
	fa, fb := c.a.bind(b), c.b.bind(b)
	up := c.up
	return func(env indicator.Env) (Flag, bool) {
		x0, ok0 := fa(env, 0)
		y0, ok1 := fb(env, 0)
		x1, ok2 := fa(env, 1)
		y1, ok3 := fb(env, 1)
		if !(ok0 && ok1 && ok2 && ok3) {
			return 0, false
		}
		if up {
			return boolFlag(x1 <= y1 && x0 > y0), true
		}
		return boolFlag(x1 >= y1 && x0 < y0), true
	}
}

func (c cross) Ternary() bool { return false }

func (c cross) String() string {
	if c.up {
		return fmt.Sprintf("%s crosses over %s", c.a, c.b)
	}
	return fmt.Sprintf("%s crosses under %s", c.a, c.b)
}

type signed struct {
	a, b Operand
	band Operand
}

// Sign is the ternary sign of a with a dead band: 1 above band, -1 below
// -band, else 0.
func Sign(a, band Operand) Predicate { return signed{a: a, b: Num(0), band: band} }

// Compare is the ternary sign of a-b with a dead band.
func Compare(a, b, band Operand) Predicate { return signed{a: a, b: b, band: band} }

func (s signed) bind(b *binder) condFn {
	fa, fb, fband := s.a.bind(b), s.b.bind(b), s.band.bind(b)
	return func(env indicator.Env) (Flag, bool) {
		x, ok := fa(env, 0)
		if !ok {
			return 0, false
		}
		y, ok := fb(env, 0)
		if !ok {
			return 0, false
		}
		band, ok := fband(env, 0)
		if !ok {
			return 0, false
		}
		switch d := x - y; {
		case d > band:
			return 1, true
		case d < -band:
			return -1, true
		}
		return 0, true
	}
}

func (s signed) Ternary() bool { return true }

func (s signed) String() string { return fmt.Sprintf("sign(%s - %s, ±%s)", s.a, s.b, s.band) }

type logic struct {
	all   bool
	preds []Predicate
}

// AllOf holds when every predicate holds.
func AllOf(ps ...Predicate) Predicate { return logic{all: true, preds: ps} }

// AnyOf holds when at least one predicate holds.
func AnyOf(ps ...Predicate) Predicate { return logic{preds: ps} }

func (l logic) bind(b *binder) condFn {
	if len(l.preds) == 0 {
		b.fail(fmt.Errorf("%s: no predicates", l))
	}
	fns := make([]condFn, len(l.preds))
	for i, p := range l.preds {
		if p.Ternary() {
			b.fail(fmt.Errorf("%s: ternary predicate %s cannot be combined", l, p))
		}
		fns[i] = p.bind(b)
	}
	all := l.all
	return func(env indicator.Env) (Flag, bool) {
		hit := 0
		for _, fn := range fns {
			f, ok := fn(env)
			if !ok {
				return 0, false
			}
			if f == 1 {
				hit++
			}
		}
		if all {
			return boolFlag(hit == len(fns)), true
		}
		return boolFlag(hit > 0), true
	}
}

func (l logic) Ternary() bool { return false }

func (l logic) String() string {
	parts := make([]string, len(l.preds))
	for i, p := range l.preds {
		parts[i] = p.String()
	}
	sep := " or "
	if l.all {
		sep = " and "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

type negation struct{ p Predicate }

// Not inverts a binary predicate.
func Not(p Predicate) Predicate { return negation{p: p} }

func (n negation) bind(b *binder) condFn {
	if n.p.Ternary() {
		b.fail(fmt.Errorf("not: ternary predicate %s", n.p))
	}
	fn := n.p.bind(b)
	return func(env indicator.Env) (Flag, bool) {
		f, ok := fn(env)
		if !ok {
			return 0, false
		}
		return 1 - f, true
	}
}

func (n negation) Ternary() bool { return false }

func (n negation) String() string { return "not " + n.p.String() }

func boolFlag(v bool) Flag {
	if v {
		return 1
	}
	return 0
}

// Condition is a bound predicate.
type Condition struct {
	fn    condFn
	label string
	refs  []string
}

// BindPredicate resolves p against params and the indicator catalog.
func BindPredicate(p Predicate, params *config.Params, catalog []string) (Condition, error) {
	b := newBinder(params, catalog)
	fn := p.bind(b)
	if b.errs != nil {
		return Condition{}, b.errs
	}
	return Condition{fn: fn, label: p.String(), refs: b.indicators()}, nil
}

// Eval returns the flag and whether every input was defined.
func (c Condition) Eval(env indicator.Env) (Flag, bool) {
	if c.fn == nil {
		return 0, false
	}
	return c.fn(env)
}

// Holds is Eval reduced to a boolean: undefined never holds.
func (c Condition) Holds(env indicator.Env) (bool, bool) {
	f, ok := c.Eval(env)
	return ok && f == 1, ok
}

func (c Condition) String() string { return c.label }

// Indicators lists the indicator names c reads.
func (c Condition) Indicators() []string { return append([]string(nil), c.refs...) }
