// Package indicator holds the read-only indicator views the decision
// engine consumes, plus the adapters that produce them from external
// indicator libraries.
package indicator

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownIndicator is returned when a name is not part of a catalog.
var ErrUnknownIndicator = errors.New("unknown indicator")

// Names of the OHLCV columns every snapshot produced by this package
// carries.
const (
	Open   = "open"
	High   = "high"
	Low    = "low"
	Close  = "close"
	Volume = "volume"

	// EntryPrice is answered by the engine, not by an oracle: the price
	// of the last executed trade, or the current close before any trade.
	EntryPrice = "entry_price"
)

// Env is the read-only view predicates are evaluated against. At returns
// the value of name `ago` bars back and false when the value is missing
// or not yet defined (warming up).
type Env interface {
	At(name string, ago int) (float64, bool)
}

// Snapshot maps indicator names to the current-bar value and, optionally,
// an aligned history (oldest first). It is built once by a producer and
// only read afterwards.
type Snapshot struct {
	Unix  int64
	Index int

	scalars map[string]float64
	series  map[string][]float64
}

func NewSnapshot(unix int64, index int) *Snapshot {
	return &Snapshot{
		Unix:    unix,
		Index:   index,
		scalars: make(map[string]float64),
		series:  make(map[string][]float64),
	}
}

// Set stores the current-bar value of name.
func (s *Snapshot) Set(name string, v float64) *Snapshot {
	s.scalars[name] = v
	return s
}

// SetSeries stores a copy of the history of name, oldest first. When no
// scalar is set the last element doubles as the current value.
func (s *Snapshot) SetSeries(name string, vals []float64) *Snapshot {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	s.series[name] = cp
	return s
}

// At implements Env.
func (s *Snapshot) At(name string, ago int) (float64, bool) {
	if s == nil || ago < 0 {
		return math.NaN(), false
	}
	if ago == 0 {
		if v, ok := s.scalars[name]; ok {
			return v, finite(v)
		}
	}
	vals, ok := s.series[name]
	if !ok || ago >= len(vals) {
		return math.NaN(), false
	}
	v := vals[len(vals)-1-ago]
	return v, finite(v)
}

// Value is At(name, 0).
func (s *Snapshot) Value(name string) (float64, bool) { return s.At(name, 0) }

// Series returns a copy of the stored history of name.
func (s *Snapshot) Series(name string) ([]float64, bool) {
	vals, ok := s.series[name]
	if !ok {
		return nil, false
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	return cp, true
}

// Has reports whether name is present at all, defined or not.
func (s *Snapshot) Has(name string) bool {
	if _, ok := s.scalars[name]; ok {
		return true
	}
	_, ok := s.series[name]
	return ok
}

// Defined reports whether the current value of name is present and finite.
func (s *Snapshot) Defined(name string) bool {
	_, ok := s.At(name, 0)
	return ok
}

// Names lists every indicator in the snapshot, sorted.
func (s *Snapshot) Names() []string {
	seen := make(map[string]struct{}, len(s.scalars)+len(s.series))
	for k := range s.scalars {
		seen[k] = struct{}{}
	}
	for k := range s.series {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks the alignment invariant: every series has the same length.
func (s *Snapshot) Validate() error {
	n := -1
	var first string
	for _, name := range s.Names() {
		vals, ok := s.series[name]
		if !ok {
			continue
		}
		if n < 0 {
			n, first = len(vals), name
			continue
		}
		if len(vals) != n {
			return fmt.Errorf("series %q has %d values, %q has %d", name, len(vals), first, n)
		}
	}
	return nil
}

// overlay adds a single derived value on top of another Env.
type overlay struct {
	base  Env
	name  string
	value float64
}

// With returns an Env that answers name with v (current bar only) and
// defers everything else to base.
func With(base Env, name string, v float64) Env {
	return overlay{base: base, name: name, value: v}
}

func (o overlay) At(name string, ago int) (float64, bool) {
	if name == o.name {
		if ago != 0 {
			return math.NaN(), false
		}
		return o.value, finite(o.value)
	}
	return o.base.At(name, ago)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
