package executor

import (
	"errors"
	"fmt"

	"github.com/evdnx/gosignal/logger"
	"github.com/evdnx/gosignal/risk"
	"github.com/evdnx/gosignal/types"
	"github.com/shopspring/decimal"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet executes engine actions and reports fills back. Market actions
// fill at the bar close; threshold orders rest until a later bar trades
// through them.
type Wallet interface {
	// Settle checks the resting threshold order against bar and returns
	// the fill, if any.
	Settle(bar types.Bar) (*types.LastTrade, error)
	// Execute applies an action emitted on bar.
	Execute(a types.Action, bar types.Bar) (*types.LastTrade, error)
	// Equity values the wallet in quote currency at price.
	Equity(price float64) decimal.Decimal
	LastTrade() types.LastTrade
}

// PaperWallet is a spot wallet: a Buy converts the sizer's stake of quote
// currency to the asset (all of it by default) and a Sell converts the
// whole asset back, minus fee.
type PaperWallet struct {
	asset    decimal.Decimal
	currency decimal.Decimal
	fee      decimal.Decimal
	sizer    risk.Sizer
	pending  *types.Action
	last     types.LastTrade
	log      logger.Logger
}

type Option func(*PaperWallet)

// WithSizer replaces the all-in stake.
func WithSizer(s risk.Sizer) Option {
	return func(w *PaperWallet) {
		if s != nil {
			w.sizer = s
		}
	}
}

func NewPaperWallet(startCurrency, feePct float64, log logger.Logger, opts ...Option) *PaperWallet {
	if log == nil {
		log = logger.NewNop()
	}
	w := &PaperWallet{
		currency: decimal.NewFromFloat(startCurrency),
		fee:      decimal.NewFromFloat(feePct),
		sizer:    risk.AllIn{},
		log:      log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *PaperWallet) Execute(a types.Action, bar types.Bar) (*types.LastTrade, error) {
	switch a.Kind {
	case types.ActionBuy, types.ActionSell:
		w.pending = nil
		return w.fill(a.Side(), bar.Close, bar.Unix)
	case types.ActionThresholds:
		if a.Buying > a.Selling {
			return nil, fmt.Errorf("threshold order buying %.6g above selling %.6g", a.Buying, a.Selling)
		}
		cp := a
		w.pending = &cp
	}
	return nil, nil
}

// Settle fills the resting order at its own level: a buy when bar.Low
// reaches Buying while holding currency, a sell when bar.High reaches
// Selling while holding the asset.
func (w *PaperWallet) Settle(bar types.Bar) (*types.LastTrade, error) {
	if w.pending == nil {
		return nil, nil
	}
	o := *w.pending
	switch {
	case w.currency.IsPositive() && o.Buying > 0 && bar.Low <= o.Buying:
		w.pending = nil
		return w.fill(types.Buy, o.Buying, bar.Unix)
	case w.asset.IsPositive() && o.Selling > 0 && bar.High >= o.Selling:
		w.pending = nil
		return w.fill(types.Sell, o.Selling, bar.Unix)
	}
	return nil, nil
}

func (w *PaperWallet) fill(side types.Side, price float64, unix int64) (*types.LastTrade, error) {
	if price <= 0 {
		return nil, fmt.Errorf("fill %s at non-positive price %v", side, price)
	}
	p := decimal.NewFromFloat(price)
	keep := decimal.NewFromInt(1).Sub(w.fee)
	switch side {
	case types.Buy:
		if !w.currency.IsPositive() {
			return nil, fmt.Errorf("%w: buy with %s currency", ErrInsufficientFunds, w.currency)
		}
		stake := w.sizer.Stake(w.currency, p)
		if !stake.IsPositive() {
			return nil, fmt.Errorf("%w: zero stake at %v", ErrInsufficientFunds, price)
		}
		w.asset = w.asset.Add(stake.Mul(keep).Div(p))
		w.currency = w.currency.Sub(stake)
	case types.Sell:
		if !w.asset.IsPositive() {
			return nil, fmt.Errorf("%w: sell with %s asset", ErrInsufficientFunds, w.asset)
		}
		w.currency = w.currency.Add(w.asset.Mul(p).Mul(keep))
		w.asset = decimal.Zero
	default:
		return nil, nil
	}
	w.last = types.LastTrade{Side: side, Price: price, Unix: unix}
	w.log.Info("fill",
		logger.String("side", string(side)),
		logger.Float64("price", price),
		logger.Int64("unix", unix),
		logger.String("asset", w.asset.String()),
		logger.String("currency", w.currency.String()),
	)
	t := w.last
	return &t, nil
}

func (w *PaperWallet) Equity(price float64) decimal.Decimal {
	return w.currency.Add(w.asset.Mul(decimal.NewFromFloat(price)))
}

func (w *PaperWallet) LastTrade() types.LastTrade { return w.last }

// Balances returns (asset, currency).
func (w *PaperWallet) Balances() (decimal.Decimal, decimal.Decimal) { return w.asset, w.currency }

// Pending returns the resting threshold order, if any.
func (w *PaperWallet) Pending() (types.Action, bool) {
	if w.pending == nil {
		return types.Action{}, false
	}
	return *w.pending, true
}
