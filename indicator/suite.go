package indicator

import (
	"math"

	"github.com/evdnx/gosignal/types"
	"github.com/evdnx/goti"
)

// Names of the values a SuiteSource publishes.
const (
	SuiteRSI     = "rsi"
	SuiteMFI     = "mfi"
	SuiteADMO    = "admo"
	SuiteATSO    = "atso"
	SuiteHMABull = "hma_bull"
	SuiteHMABear = "hma_bear"
	// Close-price statistics kept alongside the suite.
	SuiteTrend = "close_trend"
	SuiteSlope = "close_slope"
	SuiteSwing = "close_swing"
)

const (
	trendSteps = 6
	slopeSteps = 8
	closeDepth = 16
)

// SuiteNames is the catalog of a SuiteSource snapshot.
var SuiteNames = []string{Open, High, Low, Close, Volume,
	SuiteRSI, SuiteMFI, SuiteADMO, SuiteATSO, SuiteHMABull, SuiteHMABear,
	SuiteTrend, SuiteSlope, SuiteSwing}

// DefaultSuiteFactory builds a goti suite with conventional oscillator
// bands and the given ATSO EMA period.
func DefaultSuiteFactory(atsEMAPeriod int) func() (*goti.IndicatorSuite, error) {
	return func() (*goti.IndicatorSuite, error) {
		ic := goti.DefaultConfig()
		ic.RSIOverbought = 70
		ic.RSIOversold = 30
		ic.MFIOverbought = 80
		ic.MFIOversold = 20
		ic.ATSEMAperiod = atsEMAPeriod
		return goti.NewIndicatorSuiteWithConfig(ic)
	}
}

// SuiteSource is a streaming oracle: each pushed bar updates a goti
// IndicatorSuite and yields a Snapshot of its current readings. Values
// the suite cannot produce yet are NaN.
type SuiteSource struct {
	factory  func() (*goti.IndicatorSuite, error)
	suite    *goti.IndicatorSuite
	lookback int
	hist     map[string]*Window
	closes   *Window
	index    int
}

func NewSuiteSource(factory func() (*goti.IndicatorSuite, error), lookback int) (*SuiteSource, error) {
	if lookback < 2 {
		lookback = 2
	}
	s := &SuiteSource{factory: factory, lookback: lookback}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards all history and builds a fresh suite.
func (s *SuiteSource) Reset() error {
	suite, err := s.factory()
	if err != nil {
		return err
	}
	s.suite = suite
	s.hist = make(map[string]*Window, len(SuiteNames))
	for _, name := range SuiteNames {
		s.hist[name] = NewWindow(s.lookback)
	}
	s.closes = NewWindow(closeDepth)
	s.index = 0
	return nil
}

// Push feeds one bar and returns the resulting snapshot.
func (s *SuiteSource) Push(b types.Bar) (*Snapshot, error) {
	if err := s.suite.Add(b.High, b.Low, b.Close, b.Volume); err != nil {
		return nil, err
	}
	vals := map[string]float64{
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
	vals[SuiteRSI] = orNaN(s.suite.GetRSI().Calculate())
	vals[SuiteMFI] = orNaN(s.suite.GetMFI().Calculate())
	vals[SuiteADMO] = orNaN(s.suite.GetAMDO().Calculate())
	vals[SuiteATSO] = orNaN(s.suite.GetATSO().Calculate())
	vals[SuiteHMABull] = flag(s.suite.GetHMA().IsBullishCrossover())
	vals[SuiteHMABear] = flag(s.suite.GetHMA().IsBearishCrossover())
	s.closes.Push(b.Close)
	vals[SuiteTrend] = s.closes.Direction(trendSteps)
	vals[SuiteSlope] = s.closes.Slope(slopeSteps)
	vals[SuiteSwing] = s.closes.Swing(slopeSteps)

	snap := NewSnapshot(b.Unix, s.index)
	for _, name := range SuiteNames {
		w := s.hist[name]
		w.Push(vals[name])
		snap.Set(name, vals[name])
		snap.SetSeries(name, w.Values())
	}
	s.index++
	return snap, nil
}

func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

func flag(ok bool, err error) float64 {
	switch {
	case err != nil:
		return math.NaN()
	case ok:
		return 1
	}
	return 0
}
