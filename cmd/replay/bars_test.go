package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsAnyColumnOrder(t *testing.T) {
	in := "close,unix,open,high,low,volume\n" +
		"101,86400,100,102,99,5\n" +
		"103, 172800,101,104,100,7\n"
	bars, err := readBars(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(86400), bars[0].Unix)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, 7.0, bars[1].Volume)
}

func TestReadBarsRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing column": "unix,open,high,low,close\n1,1,1,1,1\n",
		"not a number":   "unix,open,high,low,close,volume\n1,x,1,1,1,1\n",
		"out of order":   "unix,open,high,low,close,volume\n2,1,1,1,1,1\n1,1,1,1,1,1\n",
		"inverted range": "unix,open,high,low,close,volume\n1,1,1,2,1,1\n",
		"empty":          "unix,open,high,low,close,volume\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readBars(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestParamSetsMergeOverrides(t *testing.T) {
	p, err := strategies.Lookup("ema_cross")
	require.NoError(t, err)
	sets, err := paramSets(p, nil, map[string]float64{"ma2_period": 30})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	v, _ := sets[0].Lookup("ma2_period")
	assert.Equal(t, 30.0, v)

	_, err = paramSets(p, nil, map[string]float64{"nope": 1})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, splitList(" a.yaml, ,b.yaml "))
	assert.Nil(t, splitList(""))
}

func TestParamSetsRestoreKeyCase(t *testing.T) {
	p, err := strategies.Lookup("parabolic_ten")
	require.NoError(t, err)
	sets, err := paramSets(p, nil, map[string]float64{"sar_initial": 0.05})
	require.NoError(t, err)
	v, ok := sets[0].Lookup("SAR_initial")
	require.True(t, ok)
	assert.Equal(t, 0.05, v)
}

func TestRunPrintsPartialReportWhenInterrupted(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("unix,open,high,low,close,volume\n")
	for i := 0; i < 30; i++ {
		c := 100 + float64(i)
		fmt.Fprintf(&csv, "%d,%v,%v,%v,%v,1000\n", (i+1)*86400, c, c+1, c-1, c)
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv.String()), 0o644))

	cfg := config.Defaults()
	cfg.Strategy = "ema_cross"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := run(ctx, cfg, path, nil, logger.NewNop(), &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, out.String(), "ema_cross [defaults] ticks=0")
	assert.Contains(t, out.String(), "complete=false")
}
