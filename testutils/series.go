package testutils

import (
	"sort"

	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/types"
)

// Snapshots turns equally long named columns into one snapshot per bar.
// Bar i is stamped i*interval and carries a window of up to lookback
// values per column.
func Snapshots(interval int64, lookback int, cols map[string][]float64) []*indicator.Snapshot {
	names := make([]string, 0, len(cols))
	n := 0
	for name, col := range cols {
		names = append(names, name)
		if len(col) > n {
			n = len(col)
		}
	}
	sort.Strings(names)
	out := make([]*indicator.Snapshot, n)
	for i := 0; i < n; i++ {
		s := indicator.NewSnapshot(int64(i)*interval, i)
		from := i - lookback + 1
		if from < 0 {
			from = 0
		}
		for _, name := range names {
			col := cols[name]
			s.Set(name, col[i])
			s.SetSeries(name, col[from:i+1])
		}
		out[i] = s
	}
	return out
}

// Repeat returns n copies of v.
func Repeat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Concat joins columns.
func Concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Bars builds daily bars from closes with a fixed high/low spread.
func Bars(spread float64, closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Unix:   int64(i) * 86400,
			Open:   c,
			High:   c + spread,
			Low:    c - spread,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}
