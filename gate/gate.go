// Package gate decides whether a proposed side may be emitted given the
// last trade and any armed cooldown.
package gate

import "github.com/evdnx/gosignal/types"

// Reason explains a suppressed action.
type Reason string

const (
	Admitted   Reason = ""
	SameSide   Reason = "same_side"
	NoPosition Reason = "no_position"
	Cooldown   Reason = "cooldown"
	NoAction   Reason = "no_action"
)

// Admit reports whether side may fire at now. A Buy with no prior trade
// opens the position and ignores the cooldown. Otherwise the side must
// differ from the last trade, a Sell needs an open position, and now must
// not precede holdUntil. A zero holdUntil is an unarmed timer.
func Admit(side types.Side, last types.LastTrade, holdUntil, now int64) (bool, Reason) {
	switch side {
	case types.Buy:
		if last.IsNone() {
			return true, Admitted
		}
		if last.Side == types.Buy {
			return false, SameSide
		}
	case types.Sell:
		if last.IsNone() {
			return false, NoPosition
		}
		if last.Side == types.Sell {
			return false, SameSide
		}
	default:
		return false, NoAction
	}
	if Cooling(holdUntil, now) {
		return false, Cooldown
	}
	return true, Admitted
}

// AdmitThresholds gates a standing threshold order. It has no side, so
// only the cooldown applies.
func AdmitThresholds(holdUntil, now int64) (bool, Reason) {
	if Cooling(holdUntil, now) {
		return false, Cooldown
	}
	return true, Admitted
}

// Cooling is true while now < holdUntil.
func Cooling(holdUntil, now int64) bool { return holdUntil != 0 && now < holdUntil }
