package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
)

// Study computes one or more columns of a Frame from columns already in
// it. The math lives in go-talib; studies only wire inputs, mark the
// warm-up region as NaN and store the result.
type Study func(f *Frame) error

// Compute runs studies in order so later ones can read earlier outputs.
func Compute(f *Frame, studies ...Study) error {
	for _, s := range studies {
		if err := s(f); err != nil {
			return err
		}
	}
	return nil
}

func input(f *Frame, name string) ([]float64, error) {
	col, ok := f.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: study input %q", ErrUnknownIndicator, name)
	}
	return col, nil
}

func nanColumn(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// warm replaces the first `lookback` talib outputs (zero-filled by the
// library) with NaN, and also any output whose inputs were undefined.
func warm(out []float64, lookback int, src ...[]float64) []float64 {
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	for _, s := range src {
		for i, v := range s {
			if !finite(v) {
				out[i] = math.NaN()
			}
		}
	}
	return out
}

// definedTail returns the slice of col starting at the first finite value.
func definedTail(col []float64) (int, []float64) {
	i := 0
	for i < len(col) && !finite(col[i]) {
		i++
	}
	return i, col[i:]
}

// applyTail runs fn on the defined tail of col and right-aligns the
// result into a full-length NaN-padded column.
func applyTail(col []float64, need int, fn func([]float64) []float64) []float64 {
	out := nanColumn(len(col))
	off, tail := definedTail(col)
	if len(tail) < need {
		return out
	}
	res := fn(tail)
	copy(out[off:], res)
	return out
}

type periodFn func(in []float64, period int) []float64

// fractional blends the integer periods around p, so optimizers can move
// a period continuously: (1-w)*fn(floor) + w*fn(ceil).
func fractional(col []float64, p float64, fn periodFn) ([]float64, error) {
	if p < 1 {
		return nil, fmt.Errorf("period %v must be >= 1", p)
	}
	lo := int(math.Floor(p))
	hi := int(math.Ceil(p))
	w := p - float64(lo)
	run := func(period int) []float64 {
		return applyTail(col, period, func(tail []float64) []float64 {
			return warm(fn(tail, period), period-1)
		})
	}
	a := run(lo)
	if hi == lo {
		return a, nil
	}
	b := run(hi)
	out := make([]float64, len(col))
	for i := range out {
		out[i] = (1-w)*a[i] + w*b[i]
	}
	return out, nil
}

// EMA adds an exponential moving average of src with a possibly
// fractional period.
func EMA(name, src string, period float64) Study {
	return func(f *Frame) error {
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out, err := fractional(col, period, talib.Ema)
		if err != nil {
			return fmt.Errorf("ema %s: %w", name, err)
		}
		return f.Add(name, out)
	}
}

// SMA adds a simple moving average of src with a possibly fractional period.
func SMA(name, src string, period float64) Study {
	return func(f *Frame) error {
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out, err := fractional(col, period, talib.Sma)
		if err != nil {
			return fmt.Errorf("sma %s: %w", name, err)
		}
		return f.Add(name, out)
	}
}

// RSI adds the relative strength index of src.
func RSI(name, src string, period int) Study {
	return func(f *Frame) error {
		if period < 2 {
			return fmt.Errorf("rsi %s: period %d must be >= 2", name, period)
		}
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out := applyTail(col, period+1, func(tail []float64) []float64 {
			return warm(talib.Rsi(tail, period), period)
		})
		return f.Add(name, out)
	}
}

// ADX adds the average directional index of the high/low/close columns.
func ADX(name string, period int) Study {
	return func(f *Frame) error {
		if period < 2 {
			return fmt.Errorf("adx %s: period %d must be >= 2", name, period)
		}
		h, _ := f.Column(High)
		l, _ := f.Column(Low)
		c, _ := f.Column(Close)
		if f.Len() < 2*period {
			return f.Add(name, nanColumn(f.Len()))
		}
		out := warm(talib.Adx(h, l, c, period), 2*period-1, h, l, c)
		return f.Add(name, out)
	}
}

// StdDev adds the rolling standard deviation of src.
func StdDev(name, src string, period float64) Study {
	return func(f *Frame) error {
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out, err := fractional(col, period, func(in []float64, p int) []float64 {
			if p < 2 {
				return make([]float64, len(in))
			}
			return talib.StdDev(in, p, 1)
		})
		if err != nil {
			return fmt.Errorf("stddev %s: %w", name, err)
		}
		return f.Add(name, out)
	}
}

// Stoch adds the slow stochastic %K and %D lines (SMA smoothed).
func Stoch(kName, dName string, fastK, slowK, slowD int) Study {
	return func(f *Frame) error {
		if fastK < 1 || slowK < 1 || slowD < 1 {
			return fmt.Errorf("stoch %s: periods must be positive", kName)
		}
		h, _ := f.Column(High)
		l, _ := f.Column(Low)
		c, _ := f.Column(Close)
		lookback := fastK - 1 + slowK - 1 + slowD - 1
		var k, d []float64
		if f.Len() <= lookback {
			k, d = nanColumn(f.Len()), nanColumn(f.Len())
		} else {
			k, d = talib.Stoch(h, l, c, fastK, slowK, talib.SMA, slowD, talib.SMA)
			warm(k, lookback, h, l, c)
			warm(d, lookback, h, l, c)
		}
		if err := f.Add(kName, k); err != nil {
			return err
		}
		return f.Add(dName, d)
	}
}

// SAR adds the parabolic stop-and-reverse of the high/low columns.
func SAR(name string, acceleration, maximum float64) Study {
	return func(f *Frame) error {
		if acceleration <= 0 || maximum <= 0 {
			return fmt.Errorf("sar %s: acceleration and maximum must be positive", name)
		}
		h, _ := f.Column(High)
		l, _ := f.Column(Low)
		if f.Len() < 2 {
			return f.Add(name, nanColumn(f.Len()))
		}
		out := warm(talib.Sar(h, l, acceleration, maximum), 1, h, l)
		return f.Add(name, out)
	}
}

// MACD adds prefix_line, prefix_signal and prefix_hist.
func MACD(prefix, src string, fast, slow, signal int) Study {
	return func(f *Frame) error {
		if fast < 2 || slow <= fast || signal < 1 {
			return fmt.Errorf("macd %s: need 2 <= fast < slow and signal >= 1", prefix)
		}
		col, err := input(f, src)
		if err != nil {
			return err
		}
		lookback := slow - 1 + signal - 1
		var line, sig, hist []float64
		n := len(col)
		if n <= lookback {
			line, sig, hist = nanColumn(n), nanColumn(n), nanColumn(n)
		} else {
			line, sig, hist = talib.Macd(col, fast, slow, signal)
			warm(line, lookback, col)
			warm(sig, lookback, col)
			warm(hist, lookback, col)
		}
		if err := f.Add(prefix+"_line", line); err != nil {
			return err
		}
		if err := f.Add(prefix+"_signal", sig); err != nil {
			return err
		}
		return f.Add(prefix+"_hist", hist)
	}
}

// Derivative adds the first difference of src (NaN at the first bar).
func Derivative(name, src string) Study {
	return func(f *Frame) error {
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out := nanColumn(len(col))
		for i := 1; i < len(col); i++ {
			out[i] = col[i] - col[i-1]
		}
		return f.Add(name, out)
	}
}

// Lag adds src shifted n bars into the past.
func Lag(name, src string, n int) Study {
	return func(f *Frame) error {
		if n < 0 {
			return fmt.Errorf("lag %s: negative shift %d", name, n)
		}
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out := nanColumn(len(col))
		for i := n; i < len(col); i++ {
			out[i] = col[i-n]
		}
		return f.Add(name, out)
	}
}

// Scale adds src multiplied by factor.
func Scale(name, src string, factor float64) Study {
	return func(f *Frame) error {
		col, err := input(f, src)
		if err != nil {
			return err
		}
		out := make([]float64, len(col))
		for i, v := range col {
			out[i] = v * factor
		}
		return f.Add(name, out)
	}
}
