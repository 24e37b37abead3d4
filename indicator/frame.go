package indicator

import (
	"fmt"
	"math"
	"sort"

	"github.com/evdnx/gosignal/types"
)

// Frame is a set of named, length-aligned columns over a whole bar series.
// Oracles fill it ahead of the replay; the replay then slices one Snapshot
// per bar.
type Frame struct {
	unix  []int64
	cols  map[string][]float64
	order []string
}

// NewFrame seeds a frame with the OHLCV columns of bars.
func NewFrame(bars []types.Bar) *Frame {
	f := &Frame{
		unix: make([]int64, len(bars)),
		cols: make(map[string][]float64),
	}
	o := make([]float64, len(bars))
	h := make([]float64, len(bars))
	l := make([]float64, len(bars))
	c := make([]float64, len(bars))
	v := make([]float64, len(bars))
	for i, b := range bars {
		f.unix[i] = b.Unix
		o[i], h[i], l[i], c[i], v[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	f.put(Open, o)
	f.put(High, h)
	f.put(Low, l)
	f.put(Close, c)
	f.put(Volume, v)
	return f
}

func (f *Frame) put(name string, col []float64) {
	if _, ok := f.cols[name]; !ok {
		f.order = append(f.order, name)
	}
	f.cols[name] = col
}

func (f *Frame) Len() int { return len(f.unix) }

// Unix returns the timestamp of bar i.
func (f *Frame) Unix(i int) int64 { return f.unix[i] }

// Add stores a derived column. Its length must match the frame; shorter
// oracle outputs are right-aligned and padded with NaN at the front.
func (f *Frame) Add(name string, col []float64) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	n := f.Len()
	if len(col) > n {
		return fmt.Errorf("column %q has %d values, frame has %d", name, len(col), n)
	}
	out := make([]float64, n)
	pad := n - len(col)
	for i := 0; i < pad; i++ {
		out[i] = math.NaN()
	}
	copy(out[pad:], col)
	f.put(name, out)
	return nil
}

// Column returns the stored column (not a copy; do not modify).
func (f *Frame) Column(name string) ([]float64, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Names lists columns in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Catalog returns the sorted column names, usable as an engine catalog.
func (f *Frame) Catalog() []string {
	out := f.Names()
	sort.Strings(out)
	return out
}

// FirstDefined returns the first index at which every named column is
// finite, or Len() if that never happens.
func (f *Frame) FirstDefined(names ...string) int {
	if len(names) == 0 {
		names = f.order
	}
	start := 0
	for _, name := range names {
		col, ok := f.cols[name]
		if !ok {
			return f.Len()
		}
		i := 0
		for i < len(col) && !finite(col[i]) {
			i++
		}
		if i > start {
			start = i
		}
	}
	return start
}

// Snapshot returns the view of bar i: every column's value at i plus a
// history window of up to lookback values ending at i. All windows share
// one length.
func (f *Frame) Snapshot(i, lookback int) *Snapshot {
	s := NewSnapshot(f.unix[i], i)
	if lookback < 1 {
		lookback = 1
	}
	from := i - lookback + 1
	if from < 0 {
		from = 0
	}
	for _, name := range f.order {
		col := f.cols[name]
		s.Set(name, col[i])
		s.SetSeries(name, col[from:i+1])
	}
	return s
}

// Align returns a frame truncated to the tail where every named column
// (all columns when none are named) is defined, and the index in f where
// that tail starts.
func (f *Frame) Align(names ...string) (*Frame, int) {
	start := f.FirstDefined(names...)
	out := &Frame{
		unix:  append([]int64(nil), f.unix[start:]...),
		cols:  make(map[string][]float64, len(f.cols)),
		order: f.Names(),
	}
	for name, col := range f.cols {
		out.cols[name] = append([]float64(nil), col[start:]...)
	}
	return out, start
}
