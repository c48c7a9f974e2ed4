package indicator

import "github.com/saistv/corolla-trading-bot/internal/model"

// Config holds the lookback parameters for one timeframe's indicator set.
type Config struct {
	ATFMain   int     // baseline EMA period
	ATFSmooth int     // true-range smoothing period
	ATFSens   float64 // band width in ATR multiples

	SqzLength int
	SqzBBMult float64
	SqzKCMult float64

	PivotLeft      int
	PivotRight     int
	PivotMaxLevels int
}

// Set bundles the indicators owned by a single timeframe. It is updated
// exactly once per newly closed bar, in close order, and produces one
// immutable snapshot per update.
type Set struct {
	symbol string
	tf     model.Timeframe

	atf *ATF
	sqz *SQZMOM
	piv *PivotSR
}

// NewSet creates the indicator set for one timeframe. The config must
// already be validated (the engine fails fast on bad parameters).
func NewSet(symbol string, tf model.Timeframe, cfg Config) *Set {
	return &Set{
		symbol: symbol,
		tf:     tf,
		atf:    NewATF(cfg.ATFMain, cfg.ATFSmooth, cfg.ATFSens),
		sqz:    NewSQZMOM(cfg.SqzLength, cfg.SqzBBMult, cfg.SqzKCMult),
		piv:    NewPivotSR(cfg.PivotLeft, cfg.PivotRight, cfg.PivotMaxLevels),
	}
}

// Update feeds the closed bar to every indicator and assembles the
// snapshot for this bar. Not-ready indicators are marked as such rather
// than reporting zeros as live values.
func (s *Set) Update(bar model.Bar) model.IndicatorSnapshot {
	s.atf.Update(bar)
	s.sqz.Update(bar)
	s.piv.Update(bar)

	snap := model.IndicatorSnapshot{
		Symbol: s.symbol,
		TF:     s.tf,
		TS:     bar.TS,
		Close:  bar.Close,
	}

	if s.atf.Ready() {
		snap.ATFReady = true
		snap.ATFBasis = s.atf.Basis()
		snap.ATFBand = s.atf.Band()
		snap.ATFTrend = s.atf.Trend()
	}

	if s.sqz.Ready() {
		snap.SqzReady = true
		snap.SqueezeOn = s.sqz.SqueezeOn()
		snap.SqzReleased = s.sqz.Released()
		snap.Momentum = s.sqz.Momentum()
		snap.MomentumDir = s.sqz.Direction()
	}

	if sup, ok := s.piv.NearestSupport(bar.Close); ok {
		snap.HasSupport = true
		snap.Support = sup
	}
	if res, ok := s.piv.NearestResistance(bar.Close); ok {
		snap.HasResistance = true
		snap.Resistance = res
	}
	snap.PivotConfidence = s.piv.Confidence()

	return snap
}
