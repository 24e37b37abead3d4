// Package backtest replays recorded bars through an engine and a wallet.
package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/executor"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/metrics"
	"github.com/evdnx/gosignal/types"
)

// Engine is the part of *engine.Engine a replay needs.
type Engine interface {
	Name() string
	Reset()
	Process(engine.Tick) engine.Result
}

// Input is a recorded series: one bar and one snapshot per tick.
type Input struct {
	Bars      []types.Bar
	Snapshots []indicator.Env
}

func (in Input) validate() error {
	if len(in.Bars) != len(in.Snapshots) {
		return fmt.Errorf("%d bars but %d snapshots", len(in.Bars), len(in.Snapshots))
	}
	if len(in.Bars) == 0 {
		return errors.New("empty input")
	}
	return nil
}

// FrameInput slices f into per-bar snapshots with lookback history.
func FrameInput(f *indicator.Frame, lookback int) Input {
	in := Input{
		Bars:      make([]types.Bar, f.Len()),
		Snapshots: make([]indicator.Env, f.Len()),
	}
	cols := make([][]float64, 0, 5)
	for _, name := range []string{indicator.Open, indicator.High, indicator.Low, indicator.Close, indicator.Volume} {
		c, _ := f.Column(name)
		cols = append(cols, c)
	}
	for i := 0; i < f.Len(); i++ {
		in.Bars[i] = types.Bar{
			Unix:   f.Unix(i),
			Open:   cols[0][i],
			High:   cols[1][i],
			Low:    cols[2][i],
			Close:  cols[3][i],
			Volume: cols[4][i],
		}
		in.Snapshots[i] = f.Snapshot(i, lookback)
	}
	return in
}

// Record is one non-hold action of a replay.
type Record struct {
	Index   int
	Unix    int64
	Kind    types.ActionKind
	Price   float64
	Buying  float64
	Selling float64
	Reason  string
	Regime  string
	Filled  bool
}

type Report struct {
	Strategy    string
	Ticks       int
	Warmup      int
	Records     []Record
	Buys        int
	Sells       int
	Thresholds  int
	Fills       int
	StartEquity float64
	Final       float64
	ROI         float64
	// Complete is false when the replay was cancelled.
	Complete bool
}

// Run resets eng and replays in. Cancellation is checked between ticks; the
// partial report returned with ctx.Err() reflects every processed tick.
func Run(ctx context.Context, eng Engine, in Input, w executor.Wallet, log logger.Logger) (Report, error) {
	if log == nil {
		log = logger.NewNop()
	}
	rep := Report{Strategy: eng.Name()}
	if err := in.validate(); err != nil {
		return rep, err
	}
	eng.Reset()
	start, _ := w.Equity(in.Bars[0].Close).Float64()
	rep.StartEquity = start

	mark := in.Bars[0].Close
	for i, bar := range in.Bars {
		if err := ctx.Err(); err != nil {
			rep.finish(w, mark)
			return rep, err
		}
		mark = bar.Close
		fill, err := w.Settle(bar)
		if err != nil {
			log.Warn("settle_failed", logger.Int("index", i), logger.Err(err))
		}
		if fill != nil {
			rep.Fills++
			if n := len(rep.Records); n > 0 && rep.Records[n-1].Kind == types.ActionThresholds {
				rep.Records[n-1].Filled = true
			}
		}
		res := eng.Process(engine.Tick{Unix: bar.Unix, Index: i, Snapshot: in.Snapshots[i], Fill: fill})
		rep.Ticks++
		if res.Warmup {
			rep.Warmup++
		}
		if res.Action.IsHold() {
			continue
		}
		rec := Record{
			Index:   i,
			Unix:    bar.Unix,
			Kind:    res.Action.Kind,
			Price:   bar.Close,
			Buying:  res.Action.Buying,
			Selling: res.Action.Selling,
			Reason:  res.Action.Reason,
			Regime:  res.Regime.String(),
		}
		switch res.Action.Kind {
		case types.ActionBuy:
			rep.Buys++
		case types.ActionSell:
			rep.Sells++
		case types.ActionThresholds:
			rep.Thresholds++
		}
		mfill, err := w.Execute(res.Action, bar)
		if err != nil {
			log.Warn("execute_failed",
				logger.String("strategy", rep.Strategy),
				logger.Int("index", i),
				logger.String("kind", res.Action.Kind.String()),
				logger.Err(err),
			)
		}
		if mfill != nil {
			rec.Filled = true
			rep.Fills++
		}
		rep.Records = append(rep.Records, rec)
	}
	rep.Complete = true
	rep.finish(w, in.Bars[len(in.Bars)-1].Close)
	metrics.BacktestRuns.WithLabelValues(rep.Strategy).Inc()
	metrics.FinalEquity.WithLabelValues(rep.Strategy).Set(rep.Final)
	log.Info("backtest_complete",
		logger.String("strategy", rep.Strategy),
		logger.Int("ticks", rep.Ticks),
		logger.Int("buys", rep.Buys),
		logger.Int("sells", rep.Sells),
		logger.Float64("final", rep.Final),
		logger.Float64("roi", rep.ROI),
	)
	return rep, nil
}

func (r *Report) finish(w executor.Wallet, price float64) {
	r.Final, _ = w.Equity(price).Float64()
	if r.StartEquity > 0 {
		r.ROI = r.Final/r.StartEquity - 1
	}
}
