package strategies

import (
	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/indicator"
	"github.com/evdnx/goti"
)

func init() {
	register(ClassicCrypto)
	register(TrendVote)
}

// ClassicCrypto votes four textbook conditions per side: oversold RSI and
// stochastic, average ordering and a strong ADX. It opens long on the
// first defined tick.
var ClassicCrypto = Preset{
	Name:        "classic_crypto",
	Description: "RSI/stochastic/average/ADX condition count",
	defaults: func() ([]config.Param, error) {
		return []config.Param{
			param("sma_period", 50, 5, 100, 0.5),
			param("ema_period", 20, 5, 100, 0.5),
			param("rsi_period", 14, 5, 50, 0.5),
			param("stoch_k_period", 14, 5, 50, 0.5),
			param("stoch_kslow_period", 14, 5, 50, 0.5),
			param("stoch_d_period", 14, 5, 50, 0.5),
			param("adx_period", 14, 5, 50, 0.5),
			param("buy_threshold", 4, 1, 5, 1),
			param("sell_threshold", 4, 1, 5, 1),
		}, nil
	},
	studies: func(r *reader) []indicator.Study {
		return []indicator.Study{
			indicator.SMA("sma", indicator.Close, r.f("sma_period")),
			indicator.EMA("ema", indicator.Close, r.f("ema_period")),
			indicator.RSI("rsi", indicator.Close, r.n("rsi_period")),
			indicator.Stoch("stoch_k", "stoch_d",
				r.n("stoch_k_period"), r.n("stoch_kslow_period"), r.n("stoch_d_period")),
			indicator.ADX("adx", r.n("adx_period")),
		}
	},
	define: func(r *reader, _ int64) engine.Definition {
		rsi, k := encoder.Ind("rsi"), encoder.Ind("stoch_k")
		sma, ema := encoder.Ind("sma"), encoder.Ind("ema")
		strong := encoder.Gt(encoder.Ind("adx"), encoder.Num(25))
		return engine.Definition{
			OpenOnFirstTick: true,
			Decider: decision.VoteSpec{
				Bull: []encoder.Predicate{
					encoder.Lt(rsi, encoder.Num(30)),
					encoder.Lt(k, encoder.Num(20)),
					encoder.Gt(sma, ema),
					strong,
				},
				Bear: []encoder.Predicate{
					encoder.Gt(rsi, encoder.Num(70)),
					encoder.Gt(k, encoder.Num(80)),
					encoder.Lt(sma, ema),
					strong,
				},
				BuyThreshold:  encoder.Param("buy_threshold"),
				SellThreshold: encoder.Param("sell_threshold"),
			},
		}
	},
}

// TrendVote streams bars through a goti suite and votes its momentum
// readings together with the short close-price statistics.
var TrendVote = Preset{
	Name:        "trend_vote",
	Description: "streaming oscillator and close-trend vote",
	defaults: func() ([]config.Param, error) {
		return []config.Param{
			param("ats_ema_period", 5, 2, 30, 1),
			param("buy_threshold", 3, 1, 5, 1),
			param("sell_threshold", 3, 1, 5, 1),
			param("min_spread", 2, 0, 5, 1),
		}, nil
	},
	stream: func(r *reader) func() (*goti.IndicatorSuite, error) {
		return indicator.DefaultSuiteFactory(r.n("ats_ema_period"))
	},
	define: func(r *reader, _ int64) engine.Definition {
		on := func(name string) encoder.Predicate { return encoder.Gt(encoder.Ind(name), encoder.Num(0.5)) }
		ind := encoder.Ind
		return engine.Definition{
			Decider: decision.VoteSpec{
				Bull: []encoder.Predicate{
					on(indicator.SuiteHMABull),
					encoder.Positive(ind(indicator.SuiteADMO)),
					encoder.Positive(ind(indicator.SuiteATSO)),
					encoder.Positive(ind(indicator.SuiteTrend)),
					encoder.Positive(ind(indicator.SuiteSlope)),
				},
				Bear: []encoder.Predicate{
					on(indicator.SuiteHMABear),
					encoder.Negative(ind(indicator.SuiteADMO)),
					encoder.Negative(ind(indicator.SuiteATSO)),
					encoder.Negative(ind(indicator.SuiteTrend)),
					encoder.Negative(ind(indicator.SuiteSlope)),
				},
				BuyThreshold:  encoder.Param("buy_threshold"),
				SellThreshold: encoder.Param("sell_threshold"),
				MinSpread:     encoder.Param("min_spread"),
			},
		}
	},
}
