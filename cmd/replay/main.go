// Command replay runs a strategy preset over recorded OHLCV bars with a
// paper wallet and prints (and optionally stores) the resulting report.
//
//	replay -config replay.yaml -bars btc_usdt_1d.csv [-params a.yaml,b.yaml]
//
// More than one params file runs the files as a parallel sweep.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/evdnx/gosignal/backtest"
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/executor"
	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/risk"
	"github.com/evdnx/gosignal/store"
	"github.com/evdnx/gosignal/strategies"
	"github.com/evdnx/gosignal/types"
)

func main() {
	cfgPath := flag.String("config", "", "replay config file (yaml, toml or json)")
	barsPath := flag.String("bars", "", "OHLCV csv with a unix,open,high,low,close,volume header")
	paramFiles := flag.String("params", "", "comma separated params files; overrides config params_file")
	list := flag.Bool("list", false, "list presets and exit")
	flag.Parse()

	if *list {
		for _, name := range strategies.Names() {
			p, _ := strategies.Lookup(name)
			fmt.Printf("%-18s %s\n", name, p.Description)
		}
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files := splitList(*paramFiles)
	if len(files) == 0 && cfg.ParamsFile != "" {
		files = []string{cfg.ParamsFile}
	}
	if err := run(ctx, cfg, *barsPath, files, zl, os.Stdout); err != nil {
		zl.Error("replay_failed", logger.String("strategy", cfg.Strategy), logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.EngineConfig, barsPath string, files []string, log logger.Logger, out io.Writer) error {
	preset, err := strategies.Lookup(cfg.Strategy)
	if err != nil {
		return err
	}
	if barsPath == "" {
		return fmt.Errorf("-bars is required")
	}
	bars, err := loadBars(barsPath)
	if err != nil {
		return err
	}
	sets, err := paramSets(preset, files, cfg.Params)
	if err != nil {
		return err
	}
	log.Info("replay_start",
		logger.String("strategy", preset.Name),
		logger.String("symbol", cfg.Symbol),
		logger.Int("bars", len(bars)),
		logger.Int("trials", len(sets)),
	)

	prepare := func(p *config.Params) (backtest.Engine, backtest.Input, error) {
		in, catalog, err := preset.Input(bars, p, cfg.Lookback)
		if err != nil {
			return nil, backtest.Input{}, err
		}
		eng, err := preset.Engine(p, catalog, cfg.BarInterval, engine.WithLogger(log))
		if err != nil {
			return nil, backtest.Input{}, err
		}
		return eng, in, nil
	}
	var sizer risk.Sizer = risk.AllIn{}
	if cfg.MaxRisk > 0 {
		sizer = risk.FixedRisk{MaxRisk: cfg.MaxRisk, StopLossPct: cfg.StopLossPct, Precision: cfg.QtyPrecision}
	}
	wallet := func() executor.Wallet {
		return executor.NewPaperWallet(cfg.StartEquity, cfg.FeePct, log, executor.WithSizer(sizer))
	}

	var reports []backtest.Report
	if len(sets) == 1 {
		eng, in, err := prepare(sets[0])
		if err != nil {
			return err
		}
		rep, err := backtest.Run(ctx, eng, in, wallet(), log)
		if err != nil {
			if ctx.Err() != nil {
				// cancelled between ticks: rep covers every processed tick
				log.Warn("replay_interrupted", logger.String("strategy", rep.Strategy), logger.Int("ticks", rep.Ticks))
				printReport(out, files, 0, rep)
			}
			return err
		}
		reports = append(reports, rep)
	} else {
		if reports, err = backtest.SweepPrepared(ctx, prepare, wallet, sets, cfg.Workers, log); err != nil {
			return err
		}
	}

	for i, rep := range reports {
		printReport(out, files, i, rep)
	}
	if cfg.DBPath == "" {
		return nil
	}
	return persist(ctx, cfg.DBPath, reports, sets, log)
}

// paramSets returns the preset defaults merged with each file and then
// with the config overrides; no files yields a single set.
func paramSets(preset strategies.Preset, files []string, overrides map[string]float64) ([]*config.Params, error) {
	overrides, err := matchCase(preset, overrides)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p, err := preset.Params(nil, overrides)
		if err != nil {
			return nil, err
		}
		return []*config.Params{p}, nil
	}
	out := make([]*config.Params, 0, len(files))
	for _, path := range files {
		loaded, err := loadParams(path)
		if err != nil {
			return nil, err
		}
		p, err := preset.Params(loaded, overrides)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// matchCase maps config override keys back to the preset's spelling;
// viper lowercases every key it reads.
func matchCase(preset strategies.Preset, overrides map[string]float64) (map[string]float64, error) {
	if len(overrides) == 0 {
		return nil, nil
	}
	defaults, err := preset.Defaults()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, defaults.Len())
	for _, n := range defaults.Names() {
		names[strings.ToLower(n)] = n
	}
	out := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		if n, ok := names[strings.ToLower(k)]; ok {
			k = n
		}
		out[k] = v
	}
	return out, nil
}

func loadParams(path string) (*config.Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := config.LoadParams(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func persist(ctx context.Context, path string, reports []backtest.Report, sets []*config.Params, log logger.Logger) error {
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer st.Close()
	for i, rep := range reports {
		id, err := st.SaveRun(ctx, rep, sets[i])
		if err != nil {
			return err
		}
		log.Info("run_saved", logger.String("run_id", id), logger.String("strategy", rep.Strategy))
	}
	return nil
}

func printReport(w io.Writer, files []string, i int, rep backtest.Report) {
	label := "defaults"
	if i < len(files) {
		label = files[i]
	}
	fmt.Fprintf(w, "%s [%s] ticks=%d warmup=%d buys=%d sells=%d thresholds=%d fills=%d final=%.6g roi=%+.2f%% complete=%t\n",
		rep.Strategy, label, rep.Ticks, rep.Warmup, rep.Buys, rep.Sells, rep.Thresholds, rep.Fills,
		rep.Final, rep.ROI*100, rep.Complete)
	for _, r := range rep.Records {
		if r.Kind == types.ActionThresholds {
			continue
		}
		fmt.Fprintf(w, "  %6d %-5s %12.6g %-10s %s\n", r.Index, r.Kind, r.Price, r.Regime, r.Reason)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
