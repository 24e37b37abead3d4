// Package strategies holds ready-made engine definitions: each preset
// pairs default parameters (with optimizer bounds) with the studies that
// compute its indicators and the decision rules that read them.
package strategies

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/evdnx/gosignal/backtest"
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
	"github.com/evdnx/goti"
	"go.uber.org/multierr"
)

// ErrUnknownPreset is returned by Lookup for an unregistered name.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named strategy. Frame presets compute their indicators over
// the whole series with studies; stream presets push bars through a goti
// suite one at a time.
type Preset struct {
	Name        string
	Description string

	defaults func() ([]config.Param, error)
	studies  func(r *reader) []indicator.Study
	stream   func(r *reader) func() (*goti.IndicatorSuite, error)
	define   func(r *reader, unit int64) engine.Definition
}

// Defaults returns the preset's parameter set with optimizer bounds.
func (p Preset) Defaults() (*config.Params, error) {
	ps, err := p.defaults()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	return config.NewParams(ps...)
}

// Params merges base (typically a loaded params file) and then overrides
// onto the defaults. Clamps carried by base replace the default bounds.
// Names the preset does not know are rejected.
func (p Preset) Params(base *config.Params, overrides map[string]float64) (*config.Params, error) {
	out, err := p.Defaults()
	if err != nil {
		return nil, err
	}
	if base != nil {
		if out, err = out.Overlay(base); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	if len(overrides) > 0 {
		if out, err = out.Merge(overrides); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return out, nil
}

// Input computes the preset's indicators over bars and returns the replay
// input together with the indicator catalog the snapshots carry.
func (p Preset) Input(bars []types.Bar, params *config.Params, lookback int) (backtest.Input, []string, error) {
	r := &reader{p: params}
	if p.stream != nil {
		factory := p.stream(r)
		if r.errs != nil {
			return backtest.Input{}, nil, r.errs
		}
		return streamInput(bars, factory, lookback)
	}
	studies := p.studies(r)
	if r.errs != nil {
		return backtest.Input{}, nil, r.errs
	}
	f := indicator.NewFrame(bars)
	if err := indicator.Compute(f, studies...); err != nil {
		return backtest.Input{}, nil, fmt.Errorf("%s: %w", p.Name, err)
	}
	return backtest.FrameInput(f, lookback), f.Catalog(), nil
}

func streamInput(bars []types.Bar, factory func() (*goti.IndicatorSuite, error), lookback int) (backtest.Input, []string, error) {
	src, err := indicator.NewSuiteSource(factory, lookback)
	if err != nil {
		return backtest.Input{}, nil, err
	}
	in := backtest.Input{
		Bars:      bars,
		Snapshots: make([]indicator.Env, len(bars)),
	}
	for i, b := range bars {
		snap, err := src.Push(b)
		if err != nil {
			return backtest.Input{}, nil, fmt.Errorf("bar %d: %w", i, err)
		}
		in.Snapshots[i] = snap
	}
	return in, append([]string(nil), indicator.SuiteNames...), nil
}

// Definition builds the engine definition for params over catalog. unit
// is the bar interval in seconds; cooldown rests count in it.
func (p Preset) Definition(params *config.Params, catalog []string, unit int64) (engine.Definition, error) {
	r := &reader{p: params}
	def := p.define(r, unit)
	if r.errs != nil {
		return engine.Definition{}, r.errs
	}
	def.Name = p.Name
	def.Catalog = catalog
	return def, nil
}

// Engine is Definition followed by engine.New.
func (p Preset) Engine(params *config.Params, catalog []string, unit int64, opts ...engine.Option) (*engine.Engine, error) {
	def, err := p.Definition(params, catalog, unit)
	if err != nil {
		return nil, err
	}
	return engine.New(def, params, opts...)
}

// reader collects parameter lookups so a preset reports every missing
// name at once.
type reader struct {
	p    *config.Params
	errs error
}

func (r *reader) f(name string) float64 {
	v, err := r.p.Get(name)
	if err != nil {
		r.errs = multierr.Append(r.errs, err)
		return math.NaN()
	}
	return v
}

// n reads an integer parameter, rounding and flooring at 1.
func (r *reader) n(name string) int {
	v := r.f(name)
	if math.IsNaN(v) {
		return 1
	}
	return int(math.Max(1, math.Round(v)))
}

// shift reads a bar offset, rounding and flooring at 0.
func (r *reader) shift(name string) int {
	v := r.f(name)
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Round(v)))
}

func param(name string, v, lo, hi, strength float64) config.Param {
	return config.Param{Name: name, Value: v, Bounds: &config.Bounds{Min: lo, Max: hi, Strength: strength}}
}

// withTable appends one Hold cell per key of a binary table and then
// applies seeds.
func withTable(ps []config.Param, width int, seeds map[string]float64) ([]config.Param, error) {
	cells, err := decision.TableParams(encoder.Binary, width)
	if err != nil {
		return nil, err
	}
	for i := range cells {
		if v, ok := seeds[cells[i].Name]; ok {
			cells[i].Value = v
		}
	}
	return append(ps, cells...), nil
}

var registry = map[string]Preset{}

func register(p Preset) {
	if _, dup := registry[p.Name]; dup {
		panic("strategies: duplicate preset " + p.Name)
	}
	registry[p.Name] = p
}

// Lookup returns the preset registered under name.
func Lookup(name string) (Preset, error) {
	p, ok := registry[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// Names lists the registered presets, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// rule is one branch of an ordered rule list.
type rule struct {
	buy  bool
	when encoder.Predicate
}

// firstMatch votes an ordered rule list so that only the first rule that
// holds counts: each rule is masked by the failure of every earlier one.
func firstMatch(rules ...rule) decision.VoteSpec {
	spec := decision.VoteSpec{BuyThreshold: encoder.Num(1), SellThreshold: encoder.Num(1)}
	var earlier []encoder.Predicate
	for _, r := range rules {
		p := r.when
		if len(earlier) > 0 {
			p = encoder.AllOf(encoder.Not(encoder.AnyOf(earlier...)), r.when)
		}
		if r.buy {
			spec.Bull = append(spec.Bull, p)
		} else {
			spec.Bear = append(spec.Bear, p)
		}
		earlier = append(earlier, r.when)
	}
	return spec
}
