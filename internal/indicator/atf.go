package indicator

import "github.com/saistv/corolla-trading-bot/internal/model"

// ATF is the average true-range trend filter. It maintains an EMA(main)
// baseline of closes and a Wilder-smoothed true range over `smooth` bars;
// the band is sens × smoothed TR around the baseline. The trend flips up
// when the close exceeds the upper band and down below the lower band,
// otherwise it holds flat.
type ATF struct {
	main   int
	smooth int
	sens   float64

	basis *ema
	atr   *rma

	prevClose float64
	havePrev  bool
	trend     model.Trend
}

// NewATF creates an ATF with baseline period main, true-range smoothing
// period smooth, and band sensitivity sens (in ATR multiples).
func NewATF(main, smooth int, sens float64) *ATF {
	return &ATF{
		main:   main,
		smooth: smooth,
		sens:   sens,
		basis:  newEMA(main),
		atr:    newRMA(smooth),
	}
}

func (a *ATF) Name() string { return "ATF" }

func (a *ATF) Update(bar model.Bar) {
	tr := trueRange(bar, a.prevClose, a.havePrev)
	a.atr.update(tr)
	a.basis.update(bar.Close)
	a.prevClose = bar.Close
	a.havePrev = true

	if !a.Ready() {
		return
	}

	band := a.sens * a.atr.value()
	switch {
	case bar.Close > a.basis.value()+band:
		a.trend = model.TrendUp
	case bar.Close < a.basis.value()-band:
		a.trend = model.TrendDown
	default:
		a.trend = model.TrendFlat
	}
}

// Ready reports whether both the baseline and the range average are warm.
func (a *ATF) Ready() bool { return a.basis.ready() && a.atr.ready() }

// Basis returns the current baseline EMA. Zero until ready.
func (a *ATF) Basis() float64 { return a.basis.value() }

// Band returns the current band half-width (sens × averaged true range).
func (a *ATF) Band() float64 { return a.sens * a.atr.value() }

// Trend returns the current trend classification.
func (a *ATF) Trend() model.Trend { return a.trend }
