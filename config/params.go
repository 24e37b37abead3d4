package config

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// ErrUnknownParameter is returned when a name is absent from a Params set.
var ErrUnknownParameter = errors.New("unknown parameter")

// Bounds is the optimizer metadata of one parameter. The engine never
// reads it; it only travels with the value.
type Bounds struct {
	Min      float64
	Max      float64
	Strength float64
}

// Clamp limits v to [Min, Max].
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Param is one named tunable value.
type Param struct {
	Name   string
	Value  float64
	Bounds *Bounds
}

// Params is an ordered, read-only set of tunable values. A new set is
// produced with With/Merge; an existing one is never modified.
type Params struct {
	items []Param
	index map[string]int
}

// NewParams builds a set keeping the given order. Duplicate or empty
// names are rejected.
func NewParams(ps ...Param) (*Params, error) {
	p := &Params{
		items: make([]Param, 0, len(ps)),
		index: make(map[string]int, len(ps)),
	}
	for _, it := range ps {
		if it.Name == "" {
			return nil, errors.New("parameter name cannot be empty")
		}
		if _, dup := p.index[it.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", it.Name)
		}
		if math.IsNaN(it.Value) || math.IsInf(it.Value, 0) {
			return nil, fmt.Errorf("parameter %q has non-finite value", it.Name)
		}
		if it.Bounds != nil {
			b := *it.Bounds
			if b.Min > b.Max {
				return nil, fmt.Errorf("parameter %q: min %v > max %v", it.Name, b.Min, b.Max)
			}
			it.Bounds = &b
		}
		p.index[it.Name] = len(p.items)
		p.items = append(p.items, it)
	}
	return p, nil
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// Lookup returns the value of name and whether it exists.
func (p *Params) Lookup(name string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	i, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return p.items[i].Value, true
}

// Get returns the value of name or ErrUnknownParameter.
func (p *Params) Get(name string) (float64, error) {
	v, ok := p.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return v, nil
}

// Bounds returns the optimizer bounds of name, if any were supplied.
func (p *Params) Bounds(name string) (Bounds, bool) {
	if p == nil {
		return Bounds{}, false
	}
	i, ok := p.index[name]
	if !ok || p.items[i].Bounds == nil {
		return Bounds{}, false
	}
	return *p.items[i].Bounds, true
}

// Names lists parameter names in declaration order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.items))
	for i, it := range p.items {
		out[i] = it.Name
	}
	return out
}

// Items returns a copy of the ordered parameters.
func (p *Params) Items() []Param {
	if p == nil {
		return nil
	}
	out := make([]Param, len(p.items))
	copy(out, p.items)
	return out
}

// Map returns name → value.
func (p *Params) Map() map[string]float64 {
	out := make(map[string]float64, p.Len())
	if p == nil {
		return out
	}
	for _, it := range p.items {
		out[it.Name] = it.Value
	}
	return out
}

// With returns a copy of p with name set to v.
func (p *Params) With(name string, v float64) (*Params, error) {
	return p.Merge(map[string]float64{name: v})
}

// Merge returns a copy of p with the given values replaced. Every key must
// already exist; overrides never introduce new parameters.
func (p *Params) Merge(overrides map[string]float64) (*Params, error) {
	items := p.Items()
	idx := make(map[string]int, len(items))
	for i, it := range items {
		idx[it.Name] = i
	}
	for name, v := range overrides {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
		}
		items[i].Value = v
	}
	return NewParams(items...)
}

// Overlay returns a copy of p taking every value of other and, where other
// carries them, its bounds. Names absent from p are rejected.
func (p *Params) Overlay(other *Params) (*Params, error) {
	items := p.Items()
	idx := make(map[string]int, len(items))
	for i, it := range items {
		idx[it.Name] = i
	}
	for _, it := range other.Items() {
		i, ok := idx[it.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, it.Name)
		}
		items[i].Value = it.Value
		if it.Bounds != nil {
			items[i].Bounds = it.Bounds
		}
	}
	return NewParams(items...)
}

// paramsFile is the on-disk layout: an ordered `tune` mapping and
// optional `clamps` as [min, max, strength].
type paramsFile struct {
	Tune   yaml.Node            `yaml:"tune"`
	Clamps map[string][]float64 `yaml:"clamps"`
}

// LoadParams reads a YAML parameter file. The order of `tune` keys is kept.
func LoadParams(r io.Reader) (*Params, error) {
	var f paramsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if f.Tune.Kind != yaml.MappingNode {
		return nil, errors.New("params file: `tune` must be a mapping")
	}
	var ps []Param
	for i := 0; i+1 < len(f.Tune.Content); i += 2 {
		key, val := f.Tune.Content[i], f.Tune.Content[i+1]
		var v float64
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("params file: %q: %w", key.Value, err)
		}
		p := Param{Name: key.Value, Value: v}
		if c, ok := f.Clamps[key.Value]; ok {
			b, err := boundsOf(key.Value, c)
			if err != nil {
				return nil, err
			}
			p.Bounds = &b
		}
		ps = append(ps, p)
	}
	for name := range f.Clamps {
		found := false
		for _, p := range ps {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("params file: clamp for %w %q", ErrUnknownParameter, name)
		}
	}
	return NewParams(ps...)
}

func boundsOf(name string, c []float64) (Bounds, error) {
	switch len(c) {
	case 2:
		return Bounds{Min: c[0], Max: c[1], Strength: 1}, nil
	case 3:
		return Bounds{Min: c[0], Max: c[1], Strength: c[2]}, nil
	}
	return Bounds{}, fmt.Errorf("params file: clamp %q needs [min, max] or [min, max, strength]", name)
}

// WriteParams writes p in the LoadParams layout.
func WriteParams(w io.Writer, p *Params) error {
	tune := &yaml.Node{Kind: yaml.MappingNode}
	clamps := &yaml.Node{Kind: yaml.MappingNode}
	for _, it := range p.Items() {
		var k, v yaml.Node
		if err := k.Encode(it.Name); err != nil {
			return err
		}
		if err := v.Encode(it.Value); err != nil {
			return err
		}
		tune.Content = append(tune.Content, &k, &v)
		if it.Bounds != nil {
			var ck, cv yaml.Node
			_ = ck.Encode(it.Name)
			if err := cv.Encode([]float64{it.Bounds.Min, it.Bounds.Max, it.Bounds.Strength}); err != nil {
				return err
			}
			cv.Style = yaml.FlowStyle
			clamps.Content = append(clamps.Content, &ck, &cv)
		}
	}
	doc := &yaml.Node{Kind: yaml.MappingNode}
	doc.Content = append(doc.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: "tune"}, tune)
	if len(clamps.Content) > 0 {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "clamps"}, clamps)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
