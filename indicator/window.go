package indicator

import "math"

// Window keeps the most recent values of one column and derives light
// statistics from them without any indicator state.
type Window struct {
	max int
	buf []float64
}

func NewWindow(max int) *Window {
	if max <= 0 {
		max = 16
	}
	return &Window{max: max}
}

func (w *Window) Push(v float64) {
	w.buf = append(w.buf, v)
	if len(w.buf) > w.max {
		w.buf = append(w.buf[:0:0], w.buf[len(w.buf)-w.max:]...)
	}
}

// Values returns a copy, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Window) Len() int { return len(w.buf) }

func (w *Window) Reset() { w.buf = w.buf[:0] }

// span returns the start index of the last n steps (n+1 values).
func (w *Window) span(n int) int {
	if n >= len(w.buf) {
		n = len(w.buf) - 1
	}
	return len(w.buf) - n - 1
}

// Direction scores the last n steps: +1 per rise, -1 per fall. It returns
// +1 or -1 once the score reaches max(2, n/3), otherwise 0.
func (w *Window) Direction(n int) float64 {
	if len(w.buf) < 2 {
		return math.NaN()
	}
	start := w.span(n)
	score := 0
	for i := start + 1; i < len(w.buf); i++ {
		switch {
		case w.buf[i] > w.buf[i-1]:
			score++
		case w.buf[i] < w.buf[i-1]:
			score--
		}
	}
	threshold := n / 3
	if threshold < 2 {
		threshold = 2
	}
	switch {
	case score >= threshold:
		return 1
	case score <= -threshold:
		return -1
	}
	return 0
}

// Slope is the least-squares slope over the last n steps.
func (w *Window) Slope(n int) float64 {
	if len(w.buf) < 2 {
		return math.NaN()
	}
	var sumX, sumY, sumXY, sumXX float64
	count := 0.0
	for i := w.span(n); i < len(w.buf); i++ {
		x, y := count, w.buf[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		count++
	}
	den := count*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (count*sumXY - sumX*sumY) / den
}

// Swing is the mean absolute change over the last n steps.
func (w *Window) Swing(n int) float64 {
	if len(w.buf) < 2 {
		return math.NaN()
	}
	start := w.span(n)
	sum := 0.0
	for i := start + 1; i < len(w.buf); i++ {
		sum += math.Abs(w.buf[i] - w.buf[i-1])
	}
	return sum / float64(len(w.buf)-1-start)
}
