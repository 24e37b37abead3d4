package strategies

import (
	"fmt"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/gate"
	"github.com/evdnx/gosignal/indicator"
)

func init() {
	register(Harmonica)
	register(ParabolicTen)
}

const sarCount = 7

func sarName(i int) string    { return fmt.Sprintf("sar%d", i) }
func scalarName(i int) string { return fmt.Sprintf("scalar_%d", i) }

// sarParams returns the shared ensemble parameters: one initial step, one
// maximum and a divisor per SAR.
func sarParams(initial, maximum float64, scalars []float64) []config.Param {
	ps := []config.Param{
		param("SAR_initial", initial, 0.001, 1, 0.5),
		param("SAR_acceleration", maximum, 0.001, 1, 0.5),
	}
	for i, s := range scalars {
		ps = append(ps, param(scalarName(i+1), s, 1, 200, 1))
	}
	return ps
}

// sarStudies adds sar1..sar7, each with the shared step and maximum
// divided by its own scalar.
func sarStudies(r *reader) []indicator.Study {
	initial, maximum := r.f("SAR_initial"), r.f("SAR_acceleration")
	out := make([]indicator.Study, 0, sarCount)
	for i := 1; i <= sarCount; i++ {
		s := r.f(scalarName(i))
		out = append(out, indicator.SAR(sarName(i), initial/s, maximum/s))
	}
	return out
}

func sars() []encoder.Operand {
	out := make([]encoder.Operand, sarCount)
	for i := range out {
		out[i] = encoder.Ind(sarName(i + 1))
	}
	return out
}

// below is one predicate per SAR: sar_i < signal.
func below(signal encoder.Operand) []encoder.Predicate {
	ss := sars()
	out := make([]encoder.Predicate, len(ss))
	for i, s := range ss {
		out[i] = encoder.Lt(s, signal)
	}
	return out
}

// ParabolicTen counts how many SARs sit under a short signal average:
// more than `buy` buys, fewer than `sell` sells.
var ParabolicTen = Preset{
	Name:        "parabolic_ten",
	Description: "SAR ensemble count against a signal average",
	defaults: func() ([]config.Param, error) {
		ps := sarParams(0.02005274490409851, 0.2300077824125609, []float64{1, 2, 3, 4, 5, 6, 7})
		return append(ps,
			param("signal_period", 2, 2, 30, 0.5),
			param("sell", 5, 1, 10, 1),
			param("buy", 5, 1, 10, 1),
		), nil
	},
	studies: func(r *reader) []indicator.Study {
		return append(sarStudies(r), indicator.EMA("signal", indicator.Close, r.f("signal_period")))
	},
	define: func(r *reader, _ int64) engine.Definition {
		market := encoder.Count(below(encoder.Ind("signal"))...)
		return engine.Definition{
			Decider: decision.VoteSpec{
				Bull:          []encoder.Predicate{encoder.Gt(market, encoder.Param("buy"))},
				Bear:          []encoder.Predicate{encoder.Lt(market, encoder.Param("sell"))},
				BuyThreshold:  encoder.Num(1),
				SellThreshold: encoder.Num(1),
			},
		}
	},
}

// Harmonica combines the SAR ensemble with four averages. Bear rules win
// over bull rules; a Sell taken well above the entry price rests for a
// span proportional to the highest SAR, every Buy rests buy_rest bars.
// Trades are recorded at the signal average, so entry_price is a signal
// value too.
var Harmonica = Preset{
	Name:        "harmonica",
	Description: "SAR ensemble and average ladder with trade cooldown",
	defaults: func() ([]config.Param, error) {
		ps := sarParams(0.04573, 0.3197, []float64{10.34, 8.739, 138.1, 3.867, 1.721, 2.081, 20.61})
		return append(ps,
			param("ma1_period", 17.54, 5, 90, 0.5),
			param("ma2_period", 47.93, 5, 90, 0.5),
			param("ma3_period", 34.97, 5, 90, 0.5),
			param("ma4_period", 7.784, 5, 90, 0.5),
			param("signal_period", 2.97, 2, 10, 0.5),
			param("sar_thresh", 2.55, 1, 6, 1),
			param("signal_thresh", 5.046, 0.1, 20, 1),
			param("signal_thresh_old", 5.8, 0.1, 20, 1),
			param("signal_thresh_sell", 2.009, 0.1, 20, 1),
			param("rest_multiplier", 0.4077, 0.1, 20, 1),
			param("min_rest", 2.789, 1, 100, 1),
			param("buy_rest", 2.772, 1, 100, 1),
			param("ago", 24, 0, 100, 1),
		), nil
	},
	studies: func(r *reader) []indicator.Study {
		out := sarStudies(r)
		for i := 1; i <= 4; i++ {
			out = append(out, indicator.EMA(ma(i), indicator.Close, r.f(maPeriod(i))))
		}
		return append(out,
			indicator.EMA("signal", indicator.Close, r.f("signal_period")),
			indicator.Lag("ma4_ago", "ma4", r.shift("ago")),
		)
	},
	define: func(r *reader, unit int64) engine.Definition {
		signal, entry := encoder.Ind("signal"), encoder.Ind(indicator.EntryPrice)
		m1, m2, m3, m4 := encoder.Ind("ma1"), encoder.Ind("ma2"), encoder.Ind("ma3"), encoder.Ind("ma4")
		over := func(factor string) encoder.Predicate {
			return encoder.Gt(signal, encoder.Mul(encoder.Param(factor), entry))
		}
		bearish := encoder.AnyOf(
			encoder.AnyOf(
				encoder.Lt(encoder.Count(below(signal)...), encoder.Param("sar_thresh")),
				encoder.Lt(m1, m2),
				encoder.Lt(m1, m3),
			),
			encoder.AllOf(over("signal_thresh"), encoder.Lt(m1, m4)),
			encoder.AllOf(over("signal_thresh_old"), encoder.Lt(m1, encoder.Ind("ma4_ago"))),
		)
		bullish := encoder.AllOf(
			encoder.Not(bearish),
			encoder.AnyOf(encoder.Gt(m1, m2), encoder.Gt(m1, m3)),
			encoder.AnyOf(below(signal)...),
		)
		return engine.Definition{
			Price: "signal",
			Decider: decision.VoteSpec{
				Bull:          []encoder.Predicate{bullish},
				Bear:          []encoder.Predicate{encoder.AllOf(bearish, encoder.Gt(signal, encoder.Min(sars()...)))},
				BuyThreshold:  encoder.Num(1),
				SellThreshold: encoder.Num(1),
			},
			Cooldown: &gate.CooldownSpec{
				Unit: unit,
				Buy:  &gate.RestRule{Min: encoder.Param("buy_rest")},
				Sell: &gate.RestRule{
					Min:        encoder.Param("min_rest"),
					Multiplier: encoder.Param("rest_multiplier"),
					Extreme:    sars(),
					When:       over("signal_thresh_sell"),
				},
			},
		}
	},
}
