// Package decision maps a discrete code, or a tally of sub-conditions, to
// a Buy/Sell/Hold verdict.
package decision

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/types"
	"gopkg.in/yaml.v3"
)

// ErrCodeOutOfRange is returned by Set for a code outside the table.
var ErrCodeOutOfRange = errors.New("code out of range")

// Table is a dense radix^width array of verdicts indexed by code. Every
// cell starts as Hold.
type Table struct {
	radix encoder.Radix
	width int
	cells []types.Verdict
}

func NewTable(radix encoder.Radix, width int) (*Table, error) {
	if radix != encoder.Binary && radix != encoder.Ternary {
		return nil, fmt.Errorf("table: unsupported radix %d", radix)
	}
	n := encoder.Size(radix, width)
	if width <= 0 || n < 0 {
		return nil, fmt.Errorf("table: invalid width %d", width)
	}
	return &Table{radix: radix, width: width, cells: make([]types.Verdict, n)}, nil
}

func (t *Table) Radix() encoder.Radix { return t.radix }
func (t *Table) Width() int           { return t.width }
func (t *Table) Size() int            { return len(t.cells) }

// Set stores v at code.
func (t *Table) Set(code encoder.Code, v types.Verdict) error {
	if code < 0 || int(code) >= len(t.cells) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrCodeOutOfRange, code, len(t.cells))
	}
	if v < types.VerdictSell || v > types.VerdictBuy {
		return fmt.Errorf("table: verdict %d not in {-1,0,1}", v)
	}
	t.cells[code] = v
	return nil
}

// Lookup never fails: codes outside the table read as Hold.
func (t *Table) Lookup(code encoder.Code) types.Verdict {
	if code < 0 || int(code) >= len(t.cells) {
		return types.VerdictHold
	}
	return t.cells[code]
}

// Key is the parameter name of the cell at code.
func (t *Table) Key(code encoder.Code) string { return encoder.Key(t.radix, t.width, code) }

// Keys lists every cell key in code order; optimizers use them as
// parameter names.
func (t *Table) Keys() []string {
	out := make([]string, len(t.cells))
	for i := range t.cells {
		out[i] = t.Key(encoder.Code(i))
	}
	return out
}

// Counts returns how many cells hold each verdict.
func (t *Table) Counts() (buy, hold, sell int) {
	for _, v := range t.cells {
		switch v {
		case types.VerdictBuy:
			buy++
		case types.VerdictSell:
			sell++
		default:
			hold++
		}
	}
	return
}

// TableFromParams fills a table from parameters whose names are cell keys
// ("010011": 1). Values are rounded onto {-1,0,1}; other parameters are
// ignored and absent cells stay Hold.
func TableFromParams(params *config.Params, radix encoder.Radix, width int) (*Table, error) {
	t, err := NewTable(radix, width)
	if err != nil {
		return nil, err
	}
	for _, p := range params.Items() {
		if len(p.Name) != width {
			continue
		}
		code, err := encoder.ParseKey(radix, p.Name)
		if err != nil {
			continue
		}
		t.cells[code] = types.VerdictOf(p.Value)
	}
	return t, nil
}

// TableParams returns one Param per cell, initialised to Hold and bounded
// to [-1, 1], ready to append to a strategy's parameter list.
func TableParams(radix encoder.Radix, width int) ([]config.Param, error) {
	t, err := NewTable(radix, width)
	if err != nil {
		return nil, err
	}
	out := make([]config.Param, t.Size())
	for i, k := range t.Keys() {
		out[i] = config.Param{Name: k, Value: 0, Bounds: &config.Bounds{Min: -1, Max: 1, Strength: 1}}
	}
	return out, nil
}

type tableFile struct {
	Radix int            `yaml:"radix"`
	Width int            `yaml:"width"`
	Cells map[string]int `yaml:"cells"`
}

// WriteYAML stores t with only its non-Hold cells.
func (t *Table) WriteYAML(w io.Writer) error {
	f := tableFile{Radix: int(t.radix), Width: t.width, Cells: map[string]int{}}
	for i, v := range t.cells {
		if v != types.VerdictHold {
			f.Cells[t.Key(encoder.Code(i))] = int(v)
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// ReadYAML loads a table written by WriteYAML.
func ReadYAML(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	t, err := NewTable(encoder.Radix(f.Radix), f.Width)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.Cells))
	for k := range f.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(k) != f.Width {
			return nil, fmt.Errorf("table: key %q is not %d digits", k, f.Width)
		}
		code, err := encoder.ParseKey(t.radix, k)
		if err != nil {
			return nil, err
		}
		if err := t.Set(code, types.Verdict(f.Cells[k])); err != nil {
			return nil, err
		}
	}
	return t, nil
}
