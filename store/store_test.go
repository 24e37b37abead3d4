package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evdnx/gosignal/backtest"
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func report(strategy string, roi float64, recs ...backtest.Record) backtest.Report {
	return backtest.Report{
		Strategy:    strategy,
		Ticks:       10,
		Records:     recs,
		Buys:        1,
		Sells:       1,
		StartEquity: 1,
		Final:       1 + roi,
		ROI:         roi,
		Complete:    true,
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s := newStore(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	ctx := context.Background()
	p, err := config.NewParams(config.Param{Name: "ma1_period", Value: 5.8}, config.Param{Name: "010011", Value: 1})
	require.NoError(t, err)

	recs := []backtest.Record{
		{Index: 7, Unix: 700, Kind: types.ActionSell, Price: 120, Reason: "table:1", Regime: "unset", Filled: true},
		{Index: 3, Unix: 300, Kind: types.ActionBuy, Price: 110, Reason: "open", Regime: "unset", Filled: true},
		{Index: 9, Unix: 900, Kind: types.ActionThresholds, Buying: 50, Selling: 200, Reason: "bands:bull", Regime: "bull"},
	}
	id, err := s.SaveRun(ctx, report("ema_cross", 0.09, recs...), p)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ema_cross", run.Strategy)
	assert.Equal(t, map[string]float64{"ma1_period": 5.8, "010011": 1}, run.Params)
	assert.InDelta(t, 0.09, run.ROI, 1e-12)
	assert.True(t, run.Complete)
	assert.Equal(t, int64(1700000000), run.Created.Unix())

	acts, err := s.Actions(ctx, id)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, recs[1], acts[0])
	assert.Equal(t, recs[0], acts[1])
	assert.Equal(t, recs[2], acts[2])
}

func TestListRunsByStrategy(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, r := range []backtest.Report{
		report("iching", 0.1),
		report("iching", 0.5),
		report("forty96", 0.9),
	} {
		_, err := s.SaveRun(ctx, r, nil)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, "iching")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.InDelta(t, 0.5, runs[0].ROI, 1e-12)
	assert.InDelta(t, 0.1, runs[1].ROI, 1e-12)

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "forty96", all[0].Strategy)
}

func TestGetRunNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStoresAreIsolated(t *testing.T) {
	a, b := newStore(t), newStore(t)
	_, err := a.SaveRun(context.Background(), report("x", 0), nil)
	require.NoError(t, err)
	runs, err := b.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
