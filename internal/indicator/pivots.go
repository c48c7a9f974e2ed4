package indicator

import "github.com/saistv/corolla-trading-bot/internal/model"

// confidenceHorizon is the bar age at which a pivot's recency weight
// decays to zero.
const confidenceHorizon = 100

// pivotLevel is one detected swing high or low.
type pivotLevel struct {
	price float64
	seq   int64 // bar sequence number of the pivot bar itself
}

// PivotSR detects LuxAlgo-style pivot highs and lows. A bar is a pivot
// high when its high strictly exceeds every high within `left` bars
// before and `right` bars after it; ties never qualify, keeping pivot
// selection deterministic and unique. A pivot is therefore confirmed
// only once `right` further bars have closed — no look-ahead.
//
// Levels are kept in bounded rings of maxLevels per side, oldest evicted
// first, so nearest-level lookups stay O(maxLevels) over a long session.
type PivotSR struct {
	left      int
	right     int
	maxLevels int

	window []model.Bar // last left+right+1 bars
	seq    int64       // bars seen so far

	pivotHighs []pivotLevel
	pivotLows  []pivotLevel
}

// NewPivotSR creates a pivot detector with the given window widths and
// per-side level capacity.
func NewPivotSR(left, right, maxLevels int) *PivotSR {
	return &PivotSR{
		left:      left,
		right:     right,
		maxLevels: maxLevels,
		window:    make([]model.Bar, 0, left+right+1),
	}
}

func (p *PivotSR) Name() string { return "PivotSR" }

func (p *PivotSR) Update(bar model.Bar) {
	p.seq++

	span := p.left + p.right + 1
	if len(p.window) == span {
		copy(p.window, p.window[1:])
		p.window = p.window[:span-1]
	}
	p.window = append(p.window, bar)
	if len(p.window) < span {
		return
	}

	cand := p.window[p.left]
	candSeq := p.seq - int64(p.right)

	if p.isPivotHigh(cand.High) {
		p.pivotHighs = appendLevel(p.pivotHighs, pivotLevel{cand.High, candSeq}, p.maxLevels)
	}
	if p.isPivotLow(cand.Low) {
		p.pivotLows = appendLevel(p.pivotLows, pivotLevel{cand.Low, candSeq}, p.maxLevels)
	}
}

func (p *PivotSR) isPivotHigh(h float64) bool {
	for i, b := range p.window {
		if i == p.left {
			continue
		}
		if b.High >= h {
			return false
		}
	}
	return true
}

func (p *PivotSR) isPivotLow(l float64) bool {
	for i, b := range p.window {
		if i == p.left {
			continue
		}
		if b.Low <= l {
			return false
		}
	}
	return true
}

// Ready reports whether a full detection window has been seen. Absence
// of levels after that is legitimate (no qualifying pivot yet).
func (p *PivotSR) Ready() bool { return p.seq >= int64(p.left+p.right+1) }

// NearestSupport returns the highest pivot low strictly below price.
func (p *PivotSR) NearestSupport(price float64) (float64, bool) {
	best, found := 0.0, false
	for _, lv := range p.pivotLows {
		if lv.price < price && (!found || lv.price > best) {
			best, found = lv.price, true
		}
	}
	return best, found
}

// NearestResistance returns the lowest pivot high strictly above price.
func (p *PivotSR) NearestResistance(price float64) (float64, bool) {
	best, found := 0.0, false
	for _, lv := range p.pivotHighs {
		if lv.price > price && (!found || lv.price < best) {
			best, found = lv.price, true
		}
	}
	return best, found
}

// Confidence returns a recency weight in [0,1] for the most recently
// formed pivot on either side: 1 right after confirmation, linearly
// decaying to 0 at confidenceHorizon bars. Zero when no pivot exists.
func (p *PivotSR) Confidence() float64 {
	var newest int64 = -1
	for _, lv := range p.pivotHighs {
		if lv.seq > newest {
			newest = lv.seq
		}
	}
	for _, lv := range p.pivotLows {
		if lv.seq > newest {
			newest = lv.seq
		}
	}
	if newest < 0 {
		return 0
	}
	age := float64(p.seq - newest)
	conf := 1 - age/confidenceHorizon
	if conf < 0 {
		return 0
	}
	return conf
}

func appendLevel(levels []pivotLevel, lv pivotLevel, max int) []pivotLevel {
	levels = append(levels, lv)
	if len(levels) > max {
		n := copy(levels, levels[len(levels)-max:])
		levels = levels[:n]
	}
	return levels
}
