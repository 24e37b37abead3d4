package engine

import (
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/regime"
	"github.com/evdnx/gosignal/types"
)

// maxTradePrices bounds the trade-price history carried in State.
const maxTradePrices = 16

// State is everything the engine remembers between ticks. The zero value
// is a fresh run: no regime, no trade, no cooldown.
type State struct {
	Regime      regime.Regime
	RegimeSince int64
	LastTrade   types.LastTrade
	// TradePrices holds the most recent fill prices, oldest first.
	TradePrices []float64
	HoldUntil   int64
	Ticks       int
}

func (s State) Clone() State {
	s.TradePrices = append([]float64(nil), s.TradePrices...)
	return s
}

// EntryPrice is the price of the last trade, if any.
func (s State) EntryPrice() (float64, bool) {
	if n := len(s.TradePrices); n > 0 {
		return s.TradePrices[n-1], true
	}
	return 0, false
}

func (s *State) record(t types.LastTrade) {
	s.LastTrade = t
	s.TradePrices = append(s.TradePrices, t.Price)
	if n := len(s.TradePrices); n > maxTradePrices {
		s.TradePrices = append([]float64(nil), s.TradePrices[n-maxTradePrices:]...)
	}
}

// Tick is one evaluation input. Fill, when set, is a trade the wallet
// executed since the previous tick (a threshold order that was hit) and is
// applied before anything else.
type Tick struct {
	Unix     int64
	Index    int
	Snapshot indicator.Env
	Fill     *types.LastTrade
}

// Result describes what happened on one tick.
type Result struct {
	Action types.Action
	Regime regime.Regime
	// Code is the table code looked up, or -1.
	Code int
	// Warmup is set when a referenced indicator was undefined.
	Warmup bool
	// Suppressed names the gate reason of a dropped candidate.
	Suppressed string
	// Override is set when the action came from a regime transition.
	Override bool
	// Transitioned is set when the regime changed on this tick.
	Transitioned bool
}
