package strategies

import (
	"fmt"

	"github.com/evdnx/gosignal/config"
	"github.com/evdnx/gosignal/decision"
	"github.com/evdnx/gosignal/encoder"
	"github.com/evdnx/gosignal/engine"
	"github.com/evdnx/gosignal/indicator"
)

func init() {
	register(EMACross)
	register(IChing)
	register(Forty96)
}

// EMACross buys when the fast average, shrunk by threshold, is still above
// the slow one and sells when the fast average, grown by threshold, falls
// under it. It opens long on the first defined tick.
var EMACross = Preset{
	Name:        "ema_cross",
	Description: "fast/slow average band crossover",
	defaults: func() ([]config.Param, error) {
		return []config.Param{
			param("ma1_period", 5, 5, 100, 1),
			param("ma2_period", 10, 10, 150, 1),
			param("threshold", 1, 1, 1.1, 1),
		}, nil
	},
	studies: func(r *reader) []indicator.Study {
		return []indicator.Study{
			indicator.SMA("ma1", indicator.Close, r.f("ma1_period")),
			indicator.SMA("ma2", indicator.Close, r.f("ma2_period")),
		}
	},
	define: func(r *reader, _ int64) engine.Definition {
		ma1, ma2, th := encoder.Ind("ma1"), encoder.Ind("ma2"), encoder.Param("threshold")
		return engine.Definition{
			OpenOnFirstTick: true,
			Decider: decision.VoteSpec{
				Bull:          []encoder.Predicate{encoder.Gt(encoder.Div(ma1, th), ma2)},
				Bear:          []encoder.Predicate{encoder.Lt(encoder.Mul(ma1, th), ma2)},
				BuyThreshold:  encoder.Num(1),
				SellThreshold: encoder.Num(1),
			},
		}
	},
}

const ichingLines = 6

// IChing reads the sign of six average slopes as a hexagram and looks the
// 6-bit code up in a 64-cell table. Fully rising buys, fully falling sells;
// every other cell starts at Hold and is left to the optimizer.
var IChing = Preset{
	Name:        "iching",
	Description: "six slope signs through a 64-cell table",
	defaults: func() ([]config.Param, error) {
		periods := []float64{5, 10, 20, 40, 80, 100}
		ps := make([]config.Param, 0, ichingLines)
		for i, p := range periods {
			ps = append(ps, param(maPeriod(i+1), p, 5, 100, 0.5))
		}
		return withTable(ps, ichingLines, map[string]float64{"111111": 1, "000000": -1})
	},
	studies: func(r *reader) []indicator.Study {
		var out []indicator.Study
		for i := 1; i <= ichingLines; i++ {
			out = append(out,
				indicator.EMA(ma(i), indicator.Close, r.f(maPeriod(i))),
				indicator.Derivative(slope(i), ma(i)),
			)
		}
		return out
	},
	define: func(r *reader, _ int64) engine.Definition {
		preds := make([]encoder.Predicate, ichingLines)
		for i := range preds {
			preds[i] = encoder.Positive(encoder.Ind(slope(i + 1)))
		}
		return engine.Definition{
			OpenOnFirstTick: true,
			Decider:         decision.TableSpec{Encoder: encoder.New(encoder.Binary, preds...)},
		}
	},
}

const forty96Flags = 12

// Forty96 encodes twelve relations between close, three averages and their
// slopes into a 4096-cell table.
var Forty96 = Preset{
	Name:        "forty96",
	Description: "price/average/slope ordering through a 4096-cell table",
	defaults: func() ([]config.Param, error) {
		ps := []config.Param{
			param("ma1_period", 5, 5, 100, 0.5),
			param("ma2_period", 10, 5, 100, 0.5),
			param("ma3_period", 20, 5, 100, 0.5),
		}
		return withTable(ps, forty96Flags, map[string]float64{
			"111111000111": 1,
			"000000111000": -1,
		})
	},
	studies: func(r *reader) []indicator.Study {
		var out []indicator.Study
		for i := 1; i <= 3; i++ {
			out = append(out,
				indicator.EMA(ma(i), indicator.Close, r.f(maPeriod(i))),
				indicator.Derivative(slope(i), ma(i)),
			)
		}
		return out
	},
	define: func(r *reader, _ int64) engine.Definition {
		c := encoder.Ind(indicator.Close)
		m1, m2, m3 := encoder.Ind("ma1"), encoder.Ind("ma2"), encoder.Ind("ma3")
		s1, s2, s3 := encoder.Ind(slope(1)), encoder.Ind(slope(2)), encoder.Ind(slope(3))
		enc := encoder.New(encoder.Binary,
			encoder.Gt(c, m1), encoder.Gt(c, m2), encoder.Gt(c, m3),
			encoder.Gt(m1, m2), encoder.Gt(m1, m3), encoder.Gt(m2, m3),
			encoder.Negative(s1), encoder.Negative(s2), encoder.Negative(s3),
			encoder.Gt(s1, s2), encoder.Gt(s1, s3), encoder.Gt(s2, s3),
		)
		return engine.Definition{
			OpenOnFirstTick: true,
			Decider:         decision.TableSpec{Encoder: enc},
		}
	},
}

func ma(i int) string       { return fmt.Sprintf("ma%d", i) }
func maPeriod(i int) string { return fmt.Sprintf("ma%d_period", i) }
func slope(i int) string    { return fmt.Sprintf("ma%d_slope", i) }
