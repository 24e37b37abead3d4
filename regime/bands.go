package regime

import (
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/indicator"
)

// Weighted is a band level blended from a fast and a slow average:
// fast*fastWeight*ratio + slow*slowWeight*(1-ratio).
func Weighted(fast, slow, fastWeight, slowWeight, ratio encoder.Operand) encoder.Operand {
	return encoder.Add(
		encoder.Mul(encoder.Mul(fast, fastWeight), ratio),
		encoder.Mul(encoder.Mul(slow, slowWeight), encoder.Sub(encoder.Num(1), ratio)),
	)
}

// WeightedParams builds a Weighted band whose weights are the parameters
// "<band> fast", "<band> slow" and "<band> ratio".
func WeightedParams(band, fast, slow string) encoder.Operand {
	return Weighted(encoder.Ind(fast), encoder.Ind(slow),
		encoder.Param(band+" fast"), encoder.Param(band+" slow"), encoder.Param(band+" ratio"))
}

// BandsSpec describes the four regime-conditioned price levels. Bull
// trades between Support and Selloff, Bear between Despair and Resistance.
// Any other regime uses Long/2 and Long*2.
type BandsSpec struct {
	Support    encoder.Operand
	Selloff    encoder.Operand
	Despair    encoder.Operand
	Resistance encoder.Operand
	Long       encoder.Operand
}

// Levels is every band evaluated for one tick.
type Levels struct {
	Support, Selloff, Despair, Resistance float64
	Floor, Ceiling                        float64
}

// Bands is a bound BandsSpec.
type Bands struct {
	support, selloff, despair, resistance encoder.Value
	floor, ceiling                        encoder.Value
	refs                                  []string
}

func (s BandsSpec) Build(params *config.Params, catalog []string) (*Bands, error) {
	b := newBinder(params, catalog)
	out := &Bands{
		support:    b.value("support", s.Support),
		selloff:    b.value("selloff", s.Selloff),
		despair:    b.value("despair", s.Despair),
		resistance: b.value("resistance", s.Resistance),
	}
	if s.Long != nil {
		out.floor = b.value("long", encoder.Div(s.Long, encoder.Num(2)))
		out.ceiling = b.value("long", encoder.Mul(s.Long, encoder.Num(2)))
	} else {
		b.value("long", nil)
	}
	if b.errs != nil {
		return nil, b.errs
	}
	out.refs = b.indicators()
	return out, nil
}

// Levels computes all candidate bands regardless of regime.
func (b *Bands) Levels(env indicator.Env) (Levels, bool) {
	var l Levels
	ok := true
	for _, f := range []struct {
		dst *float64
		v   encoder.Value
	}{
		{&l.Support, b.support},
		{&l.Selloff, b.selloff},
		{&l.Despair, b.despair},
		{&l.Resistance, b.resistance},
		{&l.Floor, b.floor},
		{&l.Ceiling, b.ceiling},
	} {
		v, defined := f.v.Eval(env)
		if !defined {
			ok = false
		}
		*f.dst = v
	}
	return l, ok
}

// Pair returns the (buying, selling) levels active in r, ordered so that
// buying <= selling.
func (b *Bands) Pair(r Regime, env indicator.Env) (buying, selling float64, ok bool) {
	l, ok := b.Levels(env)
	if !ok {
		return 0, 0, false
	}
	buying, selling = l.Active(r)
	return buying, selling, true
}

// Active selects the pair for r from precomputed levels.
func (l Levels) Active(r Regime) (buying, selling float64) {
	switch r {
	case Bull:
		buying, selling = l.Support, l.Selloff
	case Bear:
		buying, selling = l.Despair, l.Resistance
	default:
		buying, selling = l.Floor, l.Ceiling
	}
	if buying > selling {
		buying, selling = selling, buying
	}
	return buying, selling
}

func (b *Bands) Indicators() []string { return append([]string(nil), b.refs...) }
