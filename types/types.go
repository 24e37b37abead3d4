package types

import "fmt"

type Side string

const (
	None Side = ""
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// LastTrade is the tagged trade-history variant {None, Buy, Sell}.
// Price is the reference price of the executed trade and Unix its time.
type LastTrade struct {
	Side  Side
	Price float64
	Unix  int64
}

func (l LastTrade) IsNone() bool { return l.Side == None }

func (l LastTrade) String() string {
	if l.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s@%.6g", l.Side, l.Price)
}

// Verdict is the decision-table output: Sell (-1), Hold (0), Buy (+1).
type Verdict int8

const (
	VerdictSell Verdict = -1
	VerdictHold Verdict = 0
	VerdictBuy  Verdict = 1
)

// VerdictOf clamps any numeric table value onto {-1, 0, 1}.
func VerdictOf(v float64) Verdict {
	switch {
	case v >= 0.5:
		return VerdictBuy
	case v <= -0.5:
		return VerdictSell
	}
	return VerdictHold
}

func (v Verdict) Side() Side {
	switch v {
	case VerdictBuy:
		return Buy
	case VerdictSell:
		return Sell
	}
	return None
}

func (v Verdict) String() string {
	switch v {
	case VerdictBuy:
		return "buy"
	case VerdictSell:
		return "sell"
	}
	return "hold"
}

type ActionKind int

const (
	ActionHold ActionKind = iota
	ActionBuy
	ActionSell
	// ActionThresholds is a standing price-threshold order: buy at or
	// below Buying, sell at or above Selling.
	ActionThresholds
)

func (k ActionKind) String() string {
	switch k {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	case ActionThresholds:
		return "thresholds"
	}
	return "hold"
}

// Action is what the engine emits for one tick.
type Action struct {
	Kind    ActionKind
	Buying  float64
	Selling float64
	Reason  string
}

func Hold() Action { return Action{Kind: ActionHold} }

func (a Action) IsHold() bool { return a.Kind == ActionHold }

// Side returns Buy/Sell for market actions and None otherwise.
func (a Action) Side() Side {
	switch a.Kind {
	case ActionBuy:
		return Buy
	case ActionSell:
		return Sell
	}
	return None
}

func ActionFor(s Side, reason string) Action {
	switch s {
	case Buy:
		return Action{Kind: ActionBuy, Reason: reason}
	case Sell:
		return Action{Kind: ActionSell, Reason: reason}
	}
	return Hold()
}

// Bar is one OHLCV candle.
type Bar struct {
	Unix   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
