package engine

import (
	"errors"
	"fmt"

	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/gate"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/regime"
	"go.uber.org/multierr"
)

// ErrConfiguration wraps every construction failure.
var ErrConfiguration = errors.New("engine configuration")

// Definition wires the components of one strategy. At least one of
// Decider, RegimeDeciders or Bands must be set.
type Definition struct {
	Name string
	// Catalog lists the indicator names the snapshots will carry.
	Catalog []string
	// OpenOnFirstTick emits a Buy on the first defined tick of a run
	// with no prior trade.
	OpenOnFirstTick bool
	// Price names the catalog column recorded as the trade price of an
	// emitted action; before any trade it also answers entry_price.
	// Empty means close.
	Price   string
	Decider decision.Spec
	// RegimeDeciders replace Decider while the named regime is active.
	RegimeDeciders map[regime.Regime]decision.Spec
	Tracker        regime.Spec
	// Bands, when set, turn every tick without a market action into a
	// threshold order at the active band pair.
	Bands    *regime.BandsSpec
	Cooldown *gate.CooldownSpec
}

func (d Definition) price() string {
	if d.Price == "" {
		return indicator.Close
	}
	return d.Price
}

func (d Definition) inCatalog(name string) bool {
	for _, n := range d.Catalog {
		if n == name {
			return true
		}
	}
	return false
}

func (d Definition) validate() error {
	var errs error
	if d.Name == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}
	if len(d.Catalog) == 0 {
		errs = multierr.Append(errs, errors.New("catalog is empty"))
	}
	if d.Price != "" && !d.inCatalog(d.Price) {
		errs = multierr.Append(errs, fmt.Errorf("%w: price column %q", indicator.ErrUnknownIndicator, d.Price))
	}
	if d.Decider == nil && len(d.RegimeDeciders) == 0 && d.Bands == nil {
		errs = multierr.Append(errs, errors.New("no decider or bands"))
	}
	for r, s := range d.RegimeDeciders {
		if s == nil {
			errs = multierr.Append(errs, fmt.Errorf("nil decider for regime %s", r))
		}
	}
	if len(d.RegimeDeciders) > 0 && d.Tracker == nil {
		errs = multierr.Append(errs, errors.New("regime deciders need a tracker"))
	}
	return errs
}
