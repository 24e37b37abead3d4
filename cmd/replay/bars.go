package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/evdnx/gosignal/types"
)

var barColumns = []string{"unix", "open", "high", "low", "close", "volume"}

// readBars parses a CSV with a header naming at least the barColumns, in
// any order. Rows must be in time order.
func readBars(r io.Reader) ([]types.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range barColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var bars []types.Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var vals [6]float64
		for i, c := range barColumns {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[c]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, c, err)
			}
			vals[i] = v
		}
		b := types.Bar{
			Unix:   int64(vals[0]),
			Open:   vals[1],
			High:   vals[2],
			Low:    vals[3],
			Close:  vals[4],
			Volume: vals[5],
		}
		if n := len(bars); n > 0 && b.Unix <= bars[n-1].Unix {
			return nil, fmt.Errorf("line %d: time %d is not after %d", line, b.Unix, bars[n-1].Unix)
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("line %d: high %v below low %v", line, b.High, b.Low)
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, errors.New("no bars")
	}
	return bars, nil
}

func loadBars(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bars, err := readBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}
