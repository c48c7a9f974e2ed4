package indicator

import (
	"math"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// SQZMOM is the squeeze momentum oscillator. Compression is measured by
// Bollinger bands (length, bbMult) sitting fully inside Keltner channels
// (length, kcMult): that is "squeeze on". Momentum is the linear
// regression endpoint of the close's deviation from the midpoint of the
// highest-high/lowest-low midrange and the SMA, over the same lookback.
//
// The first length-1 bars produce no band values, and the momentum needs
// a further length deviations — Ready() stays false until then.
type SQZMOM struct {
	length int
	bbMult float64
	kcMult float64

	closes *ring
	highs  *ring
	lows   *ring
	devs   *ring

	kcMid *ema
	kcATR *rma

	prevClose float64
	havePrev  bool

	sqzValid bool // band comparison has been computed at least once
	sqzOn    bool
	released bool
	momentum float64
}

// NewSQZMOM creates a squeeze momentum oscillator with the given shared
// lookback and band multipliers (classic defaults: 20, 2.0, 1.5).
func NewSQZMOM(length int, bbMult, kcMult float64) *SQZMOM {
	return &SQZMOM{
		length: length,
		bbMult: bbMult,
		kcMult: kcMult,
		closes: newRing(length),
		highs:  newRing(length),
		lows:   newRing(length),
		devs:   newRing(length),
		kcMid:  newEMA(length),
		kcATR:  newRMA(length),
	}
}

func (s *SQZMOM) Name() string { return "SQZMOM" }

func (s *SQZMOM) Update(bar model.Bar) {
	tr := trueRange(bar, s.prevClose, s.havePrev)
	s.prevClose = bar.Close
	s.havePrev = true

	s.closes.push(bar.Close)
	s.highs.push(bar.High)
	s.lows.push(bar.Low)
	s.kcMid.update(bar.Close)
	s.kcATR.update(tr)

	if !s.closes.full() {
		return
	}

	// Bollinger vs Keltner compression
	sma := s.closes.mean()
	std := s.closes.stddev(sma)
	bbUpper := sma + s.bbMult*std
	bbLower := sma - s.bbMult*std
	kcUpper := s.kcMid.value() + s.kcMult*s.kcATR.value()
	kcLower := s.kcMid.value() - s.kcMult*s.kcATR.value()

	on := bbLower > kcLower && bbUpper < kcUpper
	s.released = s.sqzValid && s.sqzOn && !on
	s.sqzOn = on
	s.sqzValid = true

	// Momentum: deviation of close from the blended midline, then the
	// linear regression value at the window's right edge.
	mid := ((s.highs.max()+s.lows.min())/2 + sma) / 2
	s.devs.push(bar.Close - mid)
	if s.devs.full() {
		s.momentum = s.devs.linreg()
	}
}

// Ready reports whether the momentum window has filled.
func (s *SQZMOM) Ready() bool { return s.devs.full() }

// SqueezeOn reports whether compression is currently below its reference.
func (s *SQZMOM) SqueezeOn() bool { return s.sqzOn }

// Released reports whether the squeeze fired off on the latest bar.
func (s *SQZMOM) Released() bool { return s.released }

// Momentum returns the oscillator value. Zero until ready.
func (s *SQZMOM) Momentum() float64 { return s.momentum }

// Direction returns the momentum sign as a trend.
func (s *SQZMOM) Direction() model.Trend {
	switch {
	case s.momentum > 0:
		return model.TrendUp
	case s.momentum < 0:
		return model.TrendDown
	default:
		return model.TrendFlat
	}
}

// ring is a fixed-capacity float window with O(1) push and O(n) scans.
// n is the indicator lookback (20 by default) so scans stay cheap.
type ring struct {
	buf   []float64
	idx   int
	count int
	sum   float64
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.count >= len(r.buf) {
		r.sum -= r.buf[r.idx]
	}
	r.buf[r.idx] = v
	r.sum += v
	r.idx = (r.idx + 1) % len(r.buf)
	r.count++
}

func (r *ring) full() bool { return r.count >= len(r.buf) }

func (r *ring) mean() float64 { return r.sum / float64(len(r.buf)) }

func (r *ring) stddev(mean float64) float64 {
	var v float64
	for _, x := range r.buf {
		d := x - mean
		v += d * d
	}
	return math.Sqrt(v / float64(len(r.buf)))
}

func (r *ring) max() float64 {
	m := r.buf[0]
	for _, x := range r.buf[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func (r *ring) min() float64 {
	m := r.buf[0]
	for _, x := range r.buf[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// at returns the i-th value in insertion order (0 = oldest). Only valid
// once the ring is full.
func (r *ring) at(i int) float64 {
	return r.buf[(r.idx+i)%len(r.buf)]
}

// linreg fits y = a + b·x over the window (x = 0..n-1, insertion order)
// and returns the fitted value at the right edge x = n-1.
func (r *ring) linreg() float64 {
	n := float64(len(r.buf))
	// Σx and Σx² over 0..n-1 are closed-form.
	sumX := n * (n - 1) / 2
	sumXX := n * (n - 1) * (2*n - 1) / 6

	var sumY, sumXY float64
	for i := 0; i < len(r.buf); i++ {
		y := r.at(i)
		sumY += y
		sumXY += float64(i) * y
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / den
	intercept := (sumY - slope*sumX) / n
	return intercept + slope*(n-1)
}
