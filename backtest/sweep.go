package backtest

import (
	"context"
	"fmt"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/executor"
	"github.com/evdnx/gosignal/logger"
	"golang.org/x/sync/errgroup"
)

// Builder creates a fresh engine for one parameter set.
type Builder func(*config.Params) (Engine, error)

// WalletFactory creates a fresh wallet for one trial.
type WalletFactory func() executor.Wallet

// Prepare creates a fresh engine and its input for one parameter set.
// Sets that change study periods need their own input.
type Prepare func(*config.Params) (Engine, Input, error)

// Sweep replays in once per parameter set, at most workers at a time. Each
// trial owns its engine and wallet. Reports are returned in input order;
// the first failure cancels the remaining trials.
func Sweep(ctx context.Context, build Builder, wallet WalletFactory, sets []*config.Params,
	in Input, workers int, log logger.Logger) ([]Report, error) {

	if err := in.validate(); err != nil {
		return nil, err
	}
	prepare := func(p *config.Params) (Engine, Input, error) {
		eng, err := build(p)
		return eng, in, err
	}
	return SweepPrepared(ctx, prepare, wallet, sets, workers, log)
}

// SweepPrepared is Sweep with the input built per trial.
func SweepPrepared(ctx context.Context, prepare Prepare, wallet WalletFactory, sets []*config.Params,
	workers int, log logger.Logger) ([]Report, error) {

	if workers <= 0 {
		workers = 1
	}
	reports := make([]Report, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range sets {
		i, p := i, p
		g.Go(func() error {
			eng, in, err := prepare(p)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			rep, err := Run(gctx, eng, in, wallet(), log)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
