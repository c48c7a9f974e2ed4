// Package indicator provides the technical indicator state machines that
// power the confluence strategy: the ATF trend filter, the squeeze
// momentum oscillator, and LuxAlgo-style pivot support/resistance levels.
//
// Each indicator is updated exactly once per newly closed bar for its
// timeframe and is O(1)-to-O(lookback) per update with preallocated
// buffers. Until the lookback fills, an indicator reports not-ready
// through Ready() rather than emitting sentinel values.
package indicator

import "github.com/saistv/corolla-trading-bot/internal/model"

// Indicator is the uniform contract all indicators implement.
type Indicator interface {
	// Name returns the indicator name (e.g., "ATF", "SQZMOM").
	Name() string

	// Update feeds a newly closed bar and recalculates.
	Update(bar model.Bar)

	// Ready returns true once enough closed bars have been accumulated.
	Ready() bool
}

// ema is an exponential moving average seeded with an SMA of the first
// `period` values, matching the conventional (and TA-Lib) definition.
type ema struct {
	period  int
	mult    float64
	count   int
	sum     float64
	current float64
}

func newEMA(period int) *ema {
	return &ema{period: period, mult: 2.0 / float64(period+1)}
}

func (e *ema) update(v float64) {
	e.count++
	if e.count <= e.period {
		e.sum += v
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}
	e.current = v*e.mult + e.current*(1-e.mult)
}

func (e *ema) value() float64 { return e.current }
func (e *ema) ready() bool    { return e.count >= e.period }

// rma is Wilder's smoothed moving average, used for averaged true range.
type rma struct {
	period  int
	count   int
	sum     float64
	current float64
}

func newRMA(period int) *rma {
	return &rma{period: period}
}

func (r *rma) update(v float64) {
	r.count++
	if r.count <= r.period {
		r.sum += v
		if r.count == r.period {
			r.current = r.sum / float64(r.period)
		}
		return
	}
	p := float64(r.period)
	r.current = (r.current*(p-1) + v) / p
}

func (r *rma) value() float64 { return r.current }
func (r *rma) ready() bool    { return r.count >= r.period }

// trueRange computes the true range of a bar given the prior close.
// For a flat bar (zero high-low range) it floors at the absolute
// deviation from the prior close, so flat OHLC input stays stable.
func trueRange(b model.Bar, prevClose float64, havePrev bool) float64 {
	tr := b.High - b.Low
	if !havePrev {
		return tr
	}
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	if tr == 0 {
		tr = abs(b.Close - prevClose)
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
