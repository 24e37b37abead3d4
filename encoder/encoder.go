package encoder

import (
	"errors"
	"fmt"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/indicator"
)

// Radix of a code digit.
type Radix int

const (
	Binary  Radix = 2
	Ternary Radix = 3
)

// MaxCells caps radix^width so a table stays a reasonable flat array.
const MaxCells = 1 << 22

// Code is the radix-encoded value of a flag vector; the first predicate is
// the most significant digit.
type Code int

// Encoder is the unbound description: a radix and an ordered predicate
// list. Bind it against a parameter set and catalog before use.
type Encoder struct {
	radix Radix
	preds []Predicate
}

func New(radix Radix, preds ...Predicate) *Encoder {
	return &Encoder{radix: radix, preds: preds}
}

func (e *Encoder) Radix() Radix { return e.radix }
func (e *Encoder) Width() int   { return len(e.preds) }

// Size is the number of distinct codes, radix^width.
func (e *Encoder) Size() int { return Size(e.radix, len(e.preds)) }

// Size returns radix^width, or -1 when it exceeds MaxCells.
func Size(radix Radix, width int) int {
	n := 1
	for i := 0; i < width; i++ {
		n *= int(radix)
		if n > MaxCells {
			return -1
		}
	}
	return n
}

// Bound is an encoder with every name resolved. Encode is a pure function
// of the env.
type Bound struct {
	radix Radix
	conds []condFn
	refs  []string
}

// Bind resolves the predicates. Unknown parameters or indicators, an
// unsupported radix, ternary predicates in a binary encoder and oversized
// code spaces are reported together.
func (e *Encoder) Bind(params *config.Params, catalog []string) (*Bound, error) {
	b := newBinder(params, catalog)
	if e.radix != Binary && e.radix != Ternary {
		b.fail(fmt.Errorf("encoder: unsupported radix %d", e.radix))
	}
	if len(e.preds) == 0 {
		b.fail(errors.New("encoder: no predicates"))
	}
	if Size(e.radix, len(e.preds)) < 0 {
		b.fail(fmt.Errorf("encoder: %d^%d codes exceed %d", e.radix, len(e.preds), MaxCells))
	}
	conds := make([]condFn, len(e.preds))
	for i, p := range e.preds {
		if e.radix == Binary && p.Ternary() {
			b.fail(fmt.Errorf("encoder: flag %d (%s) is ternary in a binary encoder", i, p))
		}
		conds[i] = p.bind(b)
	}
	if b.errs != nil {
		return nil, b.errs
	}
	return &Bound{radix: e.radix, conds: conds, refs: b.indicators()}, nil
}

func (b *Bound) Radix() Radix { return b.radix }
func (b *Bound) Width() int   { return len(b.conds) }

// Indicators lists the indicator names the encoder reads.
func (b *Bound) Indicators() []string { return append([]string(nil), b.refs...) }

// Flags evaluates every predicate in order. Undefined inputs yield a 0
// flag and make the result undefined.
func (b *Bound) Flags(env indicator.Env) ([]Flag, bool) {
	out := make([]Flag, len(b.conds))
	defined := true
	for i, c := range b.conds {
		f, ok := c(env)
		if !ok {
			f, defined = 0, false
		}
		out[i] = f
	}
	return out, defined
}

// Encode returns the radix code of the flag vector.
func (b *Bound) Encode(env indicator.Env) (Code, bool) {
	flags, ok := b.Flags(env)
	return Pack(b.radix, flags), ok
}

// Pack radix-encodes flags. Ternary digits are flag+1.
func Pack(radix Radix, flags []Flag) Code {
	code := 0
	for _, f := range flags {
		d := int(f)
		if radix == Ternary {
			d++
		}
		code = code*int(radix) + d
	}
	return Code(code)
}

// Unpack is the inverse of Pack.
func Unpack(radix Radix, width int, code Code) []Flag {
	out := make([]Flag, width)
	c := int(code)
	for i := width - 1; i >= 0; i-- {
		d := c % int(radix)
		c /= int(radix)
		if radix == Ternary {
			d--
		}
		out[i] = Flag(d)
	}
	return out
}

// Key formats code as a fixed-width digit string, most significant digit
// first ("010011"). Keys name table cells in a parameter set.
func Key(radix Radix, width int, code Code) string {
	c := int(code)
	digits := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		digits[i] = byte('0' + c%int(radix))
		c /= int(radix)
	}
	return string(digits)
}

// ParseKey is the inverse of Key.
func ParseKey(radix Radix, key string) (Code, error) {
	code := 0
	for _, ch := range key {
		d := int(ch - '0')
		if d < 0 || d >= int(radix) {
			return 0, fmt.Errorf("key %q: digit %q out of radix %d", key, ch, radix)
		}
		code = code*int(radix) + d
	}
	if key == "" {
		return 0, errors.New("empty key")
	}
	return Code(code), nil
}
