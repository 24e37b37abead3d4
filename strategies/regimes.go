package strategies

import (
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/gosignal/regime"
)

func init() {
	register(ExtinctionEvent)
	register(Cthulhu)
}

var bandNames = []string{"selloff", "support", "resistance", "despair"}

// ExtinctionEvent follows the long average for bull/bear, forces a Buy or
// Sell on every regime change and otherwise keeps a threshold order at
// the band pair of the current regime.
var ExtinctionEvent = Preset{
	Name:        "extinction_event",
	Description: "bull/bear regime with weighted threshold bands",
	defaults: func() ([]config.Param, error) {
		ps := []config.Param{
			param("ma1_period", 5.8, 5, 100, 0.5),
			param("ma2_period", 15, 5, 100, 0.5),
			param("ma3_period", 30, 5, 100, 0.5),
		}
		weights := map[string]float64{"selloff": 1.1, "support": 1, "resistance": 1, "despair": 0.9}
		for _, band := range bandNames {
			w := weights[band]
			ps = append(ps,
				param(band+" ma1", w, 0.9, 1.2, 0.5),
				param(band+" ma2", w, 0.9, 1.2, 0.5),
				param(band+" ratio", 0.5, 0.25, 0.75, 0.5),
			)
		}
		return ps, nil
	},
	studies: func(r *reader) []indicator.Study {
		return []indicator.Study{
			indicator.EMA("ma1", indicator.Close, r.f("ma1_period")),
			indicator.EMA("ma2", indicator.Close, r.f("ma2_period")),
			indicator.EMA("ma3", indicator.Close, r.f("ma3_period")),
		}
	},
	define: func(r *reader, _ int64) engine.Definition {
		band := func(name string) encoder.Operand {
			return regime.Weighted(encoder.Ind("ma1"), encoder.Ind("ma2"),
				encoder.Param(name+" ma1"), encoder.Param(name+" ma2"), encoder.Param(name+" ratio"))
		}
		return engine.Definition{
			Tracker: regime.DefaultTrend("ma3"),
			Bands: &regime.BandsSpec{
				Support:    band("support"),
				Selloff:    band("selloff"),
				Despair:    band("despair"),
				Resistance: band("resistance"),
				Long:       encoder.Ind("ma3"),
			},
		}
	},
}

// Cthulhu splits the market on the width of a deviation channel around an
// average. Inside a narrow channel it fades the channel edges; in a wide
// one it follows price against the average. When the regime rule is
// silent a SAR flip across the average decides, then the breakout
// factors. The first rule that holds wins.
var Cthulhu = Preset{
	Name:        "cthulhu",
	Description: "channel width regime with channel and trend rules",
	defaults: func() ([]config.Param, error) {
		return []config.Param{
			param("ema_period", 20.53, 5, 100, 0.5),
			param("std_period", 7.448, 5, 100, 0.5),
			param("upper_deviations", 1.781, 1, 4, 0.5),
			param("lower_deviations", 2.533, 1, 4, 0.5),
			param("channel_buy_factor", 1.746, 0.5, 2, 0.5),
			param("channel_sell_factor", 0.9373, 0.5, 2, 0.5),
			param("trend_buy_factor", 0.4987, 0.5, 2, 0.5),
			param("trend_sell_factor", 0.9355, 0.5, 2, 0.5),
			param("breakout_buy_factor", 0.5072, 0.5, 2, 0.5),
			param("breakout_sell_factor", 1.809, 0.5, 2, 0.5),
			param("sar_accel", 0.008457, 0.0001, 0.2, 0.5),
			param("sar_max", 0.1174, 0.0001, 0.2, 0.5),
			param("channel", 0.008094, 0.0001, 0.2, 0.5),
		}, nil
	},
	studies: func(r *reader) []indicator.Study {
		return []indicator.Study{
			indicator.EMA("ma0", indicator.Close, r.f("ema_period")),
			indicator.StdDev("std", indicator.Close, r.f("std_period")),
			indicator.SAR("sar0", r.f("sar_accel"), r.f("sar_max")),
		}
	},
	define: func(r *reader, _ int64) engine.Definition {
		price, ma0, std := encoder.Ind(indicator.Close), encoder.Ind("ma0"), encoder.Ind("std")
		upper := encoder.Add(ma0, encoder.Mul(encoder.Param("upper_deviations"), std))
		lower := encoder.Sub(ma0, encoder.Mul(encoder.Param("lower_deviations"), std))
		width := encoder.Sub(upper, lower)
		scaled := func(factor string) encoder.Operand { return encoder.Mul(encoder.Param(factor), price) }

		sar, sar1, ma1 := encoder.Ind("sar0"), encoder.Prev("sar0", 1), encoder.Prev("ma0", 1)
		flipUp := encoder.AllOf(encoder.Lt(sar, ma0), encoder.Gt(sar1, ma1))
		flipDown := encoder.AllOf(encoder.Gt(sar, ma0), encoder.Lt(sar1, ma1))
		breakUp := encoder.Gt(scaled("breakout_buy_factor"), ma0)
		breakDown := encoder.Lt(scaled("breakout_sell_factor"), ma0)

		vote := func(bull, bear encoder.Predicate) decision.Spec {
			return firstMatch(
				rule{buy: true, when: bull},
				rule{when: bear},
				rule{buy: true, when: flipUp},
				rule{when: flipDown},
				rule{buy: true, when: breakUp},
				rule{when: breakDown},
			)
		}
		return engine.Definition{
			Tracker: regime.StrengthSpec{Measure: width, Threshold: encoder.Param("channel")},
			RegimeDeciders: map[regime.Regime]decision.Spec{
				regime.Channeling: vote(
					encoder.Lt(scaled("channel_buy_factor"), lower),
					encoder.Gt(scaled("channel_sell_factor"), upper),
				),
				regime.Trending: vote(
					encoder.Gt(scaled("trend_buy_factor"), ma0),
					encoder.Lt(scaled("trend_sell_factor"), ma0),
				),
			},
		}
	},
}
