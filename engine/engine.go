// Package engine turns one indicator snapshot plus the carried State into
// one action per tick.
package engine

import (
	"fmt"
	"sort"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/gate"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/metrics"
	"github.com/evdnx/gosignal/regime"
	"github.com/evdnx/gosignal/types"
	"go.uber.org/multierr"
)

// Engine is a bound Definition. Step is safe for concurrent use; Process
// and Reset mutate the embedded state and are not.
type Engine struct {
	name     string
	params   *config.Params
	open     bool
	price    string
	decider  decision.Decider
	byRegime map[regime.Regime]decision.Decider
	tracker  regime.Tracker
	bands    *regime.Bands
	timer    *gate.Timer
	refs     []string
	log      logger.Logger

	state State
}

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New binds def against params. Every unknown parameter or indicator name
// is reported at once, wrapped in ErrConfiguration.
func New(def Definition, params *config.Params, opts ...Option) (*Engine, error) {
	e := &Engine{
		name:   def.Name,
		params: params,
		open:   def.OpenOnFirstTick,
		price:  def.price(),
		log:    logger.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	errs := def.validate()
	refs := map[string]struct{}{}
	collect := func(names []string) {
		for _, n := range names {
			refs[n] = struct{}{}
		}
	}
	if def.Decider != nil {
		d, err := def.Decider.Build(params, def.Catalog)
		errs = multierr.Append(errs, err)
		if d != nil {
			e.decider = d
			collect(d.Indicators())
		}
	}
	if len(def.RegimeDeciders) > 0 {
		e.byRegime = make(map[regime.Regime]decision.Decider, len(def.RegimeDeciders))
		for r, s := range def.RegimeDeciders {
			if s == nil {
				continue
			}
			d, err := s.Build(params, def.Catalog)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", r, err))
				continue
			}
			e.byRegime[r] = d
			collect(d.Indicators())
		}
	}
	if def.Tracker != nil {
		t, err := def.Tracker.Build(params, def.Catalog)
		errs = multierr.Append(errs, err)
		if t != nil {
			e.tracker = t
			collect(t.Indicators())
		}
	}
	if def.Bands != nil {
		b, err := def.Bands.Build(params, def.Catalog)
		errs = multierr.Append(errs, err)
		if b != nil {
			e.bands = b
			collect(b.Indicators())
		}
	}
	if def.Cooldown != nil {
		t, err := def.Cooldown.Build(params, def.Catalog)
		errs = multierr.Append(errs, err)
		if t != nil {
			e.timer = t
			collect(t.Indicators())
		}
	}
	_, entry := refs[indicator.EntryPrice]
	delete(refs, indicator.EntryPrice)
	if entry && def.Price == "" && !def.inCatalog(indicator.Close) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s needs %q in the catalog",
			indicator.ErrUnknownIndicator, indicator.EntryPrice, indicator.Close))
	}
	if errs != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, def.Name, errs)
	}
	for n := range refs {
		e.refs = append(e.refs, n)
	}
	sort.Strings(e.refs)
	return e, nil
}

func (e *Engine) Name() string           { return e.name }
func (e *Engine) Params() *config.Params { return e.params }

// Indicators lists every indicator the engine reads.
func (e *Engine) Indicators() []string { return append([]string(nil), e.refs...) }

// State returns a copy of the carried state.
func (e *Engine) State() State { return e.state.Clone() }

// Reset returns the engine to a fresh run.
func (e *Engine) Reset() { e.state = State{} }

// Process runs Step against the carried state and keeps the result.
func (e *Engine) Process(t Tick) Result {
	res, next := e.Step(e.state, t)
	e.state = next
	return res
}

// Step is the pure transition (state, tick) → (result, state'). st is not
// modified.
func (e *Engine) Step(st State, t Tick) (Result, State) {
	next := st.Clone()
	next.Ticks++
	if t.Fill != nil && !t.Fill.IsNone() {
		next.record(*t.Fill)
	}
	res := Result{Action: types.Hold(), Regime: next.Regime, Code: -1}

	env := e.env(next, t.Snapshot)
	if missing, ok := e.warm(env); !ok {
		res.Warmup = true
		metrics.WarmupTicks.WithLabelValues(e.name).Inc()
		e.log.Debug("warmup_insufficient",
			logger.String("strategy", e.name),
			logger.Int("index", t.Index),
			logger.String("indicator", missing),
		)
		return res, next
	}

	override := types.None
	if e.tracker != nil {
		tr, defined := e.tracker.Next(next.Regime, env)
		if !defined {
			res.Warmup = true
			return res, next
		}
		if tr.Changed() {
			next.Regime, next.RegimeSince = tr.To, t.Unix
			res.Regime, res.Transitioned = tr.To, true
			metrics.RegimeTransitions.WithLabelValues(e.name, tr.To.String()).Inc()
			e.log.Info("regime_transition",
				logger.String("strategy", e.name),
				logger.String("from", tr.From.String()),
				logger.String("to", tr.To.String()),
				logger.Int64("unix", t.Unix),
			)
		}
		override = tr.Override
	}

	if override != types.None {
		ok, reason := gate.Admit(override, next.LastTrade, next.HoldUntil, t.Unix)
		if ok {
			res.Override = true
			res.Action = types.ActionFor(override, "override:"+next.Regime.String())
			e.fire(&next, &res, t, env)
			return res, next
		}
		e.suppress(&res, override, reason)
	}

	if e.open && next.LastTrade.IsNone() {
		res.Action = types.ActionFor(types.Buy, "open")
		e.fire(&next, &res, t, env)
		return res, next
	}

	if d := e.activeDecider(next.Regime); d != nil {
		out := d.Decide(env)
		res.Code = int(out.Code)
		if !out.Defined {
			res.Warmup = true
			metrics.WarmupTicks.WithLabelValues(e.name).Inc()
			return res, next
		}
		if side := out.Verdict.Side(); side != types.None {
			ok, reason := gate.Admit(side, next.LastTrade, next.HoldUntil, t.Unix)
			if ok {
				res.Action = types.ActionFor(side, reasonOf(out))
				e.fire(&next, &res, t, env)
				return res, next
			}
			e.suppress(&res, side, reason)
		}
	}

	if e.bands != nil {
		buying, selling, ok := e.bands.Pair(next.Regime, env)
		if !ok {
			res.Warmup = true
			return res, next
		}
		if admitted, reason := gate.AdmitThresholds(next.HoldUntil, t.Unix); admitted {
			res.Action = types.Action{
				Kind:    types.ActionThresholds,
				Buying:  buying,
				Selling: selling,
				Reason:  "bands:" + next.Regime.String(),
			}
			metrics.ActionsEmitted.WithLabelValues(e.name, res.Action.Kind.String()).Inc()
		} else {
			e.suppress(&res, types.None, reason)
		}
	}
	return res, next
}

func (e *Engine) activeDecider(r regime.Regime) decision.Decider {
	if d, ok := e.byRegime[r]; ok {
		return d
	}
	return e.decider
}

// env exposes entry_price: the last trade price, or the price column
// before any trade.
func (e *Engine) env(st State, snap indicator.Env) indicator.Env {
	if snap == nil {
		snap = indicator.NewSnapshot(0, 0)
	}
	if p, ok := st.EntryPrice(); ok {
		return indicator.With(snap, indicator.EntryPrice, p)
	}
	if c, ok := snap.At(e.price, 0); ok {
		return indicator.With(snap, indicator.EntryPrice, c)
	}
	return snap
}

func (e *Engine) warm(env indicator.Env) (string, bool) {
	for _, n := range e.refs {
		if _, ok := env.At(n, 0); !ok {
			return n, false
		}
	}
	return "", true
}

// fire records an emitted market action and arms the cooldown.
func (e *Engine) fire(st *State, res *Result, t Tick, env indicator.Env) {
	side := res.Action.Side()
	price, _ := env.At(e.price, 0)
	entry, _ := st.EntryPrice()
	st.record(types.LastTrade{Side: side, Price: price, Unix: t.Unix})
	if hold, armed := e.timer.Arm(side, t.Unix, entry, env); armed {
		st.HoldUntil = hold
	}
	metrics.ActionsEmitted.WithLabelValues(e.name, res.Action.Kind.String()).Inc()
	e.log.Info("action_emitted",
		logger.String("strategy", e.name),
		logger.String("side", string(side)),
		logger.Float64("price", price),
		logger.Int64("unix", t.Unix),
		logger.String("reason", res.Action.Reason),
		logger.Int64("hold_until", st.HoldUntil),
	)
}

func (e *Engine) suppress(res *Result, side types.Side, reason gate.Reason) {
	res.Suppressed = string(reason)
	metrics.ActionsSuppressed.WithLabelValues(e.name, string(reason)).Inc()
	e.log.Debug("action_suppressed",
		logger.String("strategy", e.name),
		logger.String("side", string(side)),
		logger.String("reason", string(reason)),
	)
}

func reasonOf(o decision.Outcome) string {
	if o.Code >= 0 {
		return fmt.Sprintf("table:%d", o.Code)
	}
	return fmt.Sprintf("vote:%d/%d", o.Bull, o.Bear)
}
