// Package confluence combines the latest indicator snapshots from both
// tracked timeframes into one weighted five-factor score. The scorer is
// stateless: the score at any instant is a pure function of the two
// snapshots it is handed, which keeps replay deterministic.
package confluence

import (
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// momentumBase is the factor value for a plain momentum reading; a
// squeeze release on the same bar upgrades it to full weight.
const momentumBase = 0.6

// Weights are the per-factor weights. They are normalized by the sum of
// their absolute values, so the aggregate score always lands in [-1, 1]
// and a not-ready factor strictly reduces the achievable magnitude.
type Weights struct {
	ATF1m     float64
	ATF15m    float64
	Momentum  float64
	Proximity float64
	Pivot     float64
}

// DefaultWeights mirror the original five-factor split: the two trend
// confirmations carry the most weight.
func DefaultWeights() Weights {
	return Weights{
		ATF1m:     0.25,
		ATF15m:    0.25,
		Momentum:  0.20,
		Proximity: 0.15,
		Pivot:     0.15,
	}
}

func (w Weights) norm() float64 {
	n := abs(w.ATF1m) + abs(w.ATF15m) + abs(w.Momentum) + abs(w.Proximity) + abs(w.Pivot)
	return n
}

// Config parameterizes the scorer.
type Config struct {
	Weights   Weights
	Tolerance float64 // proximity band as a fraction of price (0.001 = 0.1%)
	Threshold float64 // |score| at or above which the bias is actionable
}

// Scorer evaluates confluence from the two most recent snapshots.
type Scorer struct {
	cfg  Config
	norm float64
}

// New creates a Scorer. The config must already be validated.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg, norm: cfg.Weights.norm()}
}

// Score computes the confluence score as of ts, from the latest fast
// (1m) and slow (15m) snapshots. Either snapshot may be the zero value
// while its timeframe is still warming; all of its factors then read as
// neutral, never as a bearish zero.
func (s *Scorer) Score(ts time.Time, fast, slow model.IndicatorSnapshot) model.ConfluenceScore {
	w := s.cfg.Weights

	score := model.ConfluenceScore{
		Symbol: fast.Symbol,
		TS:     ts,
	}

	// Factor 1 + 2: trend confirmation on each timeframe.
	if fast.ATFReady {
		score.ATF1m = w.ATF1m * float64(fast.ATFTrend)
	}
	if slow.ATFReady {
		score.ATF15m = w.ATF15m * float64(slow.ATFTrend)
	}

	// Factor 3: fast-timeframe momentum, boosted on the squeeze-release bar.
	if fast.SqzReady && fast.MomentumDir != model.TrendFlat {
		v := momentumBase
		if fast.SqzReleased {
			v = 1.0
		}
		score.Momentum = w.Momentum * float64(fast.MomentumDir) * v
	}

	// Factor 4: proximity to a pivot level within the tolerance band.
	// Near support reads bullish, near resistance bearish; when both
	// qualify the nearer level wins.
	prox := proximity(fast, s.cfg.Tolerance)
	score.Proximity = w.Proximity * prox

	// Factor 5: recency-weighted pivot confidence, signed by whichever
	// level is nearer to the current price.
	score.Pivot = w.Pivot * fast.PivotConfidence * levelSide(fast)

	total := score.ATF1m + score.ATF15m + score.Momentum + score.Proximity + score.Pivot
	if s.norm > 0 {
		total /= s.norm
	}
	score.Score = total

	switch {
	case total > 0:
		score.Bias = model.Long
	case total < 0:
		score.Bias = model.Short
	default:
		score.Bias = model.Flat
	}
	score.Actionable = abs(total) >= s.cfg.Threshold

	return score
}

// proximity returns +1 when price sits within tolerance of the nearest
// support, -1 within tolerance of the nearest resistance, 0 otherwise.
func proximity(snap model.IndicatorSnapshot, tol float64) float64 {
	if snap.Close <= 0 {
		return 0
	}
	supDist, resDist := -1.0, -1.0
	if snap.HasSupport {
		supDist = (snap.Close - snap.Support) / snap.Close
	}
	if snap.HasResistance {
		resDist = (snap.Resistance - snap.Close) / snap.Close
	}

	supNear := supDist >= 0 && supDist <= tol
	resNear := resDist >= 0 && resDist <= tol
	switch {
	case supNear && resNear:
		if supDist <= resDist {
			return 1
		}
		return -1
	case supNear:
		return 1
	case resNear:
		return -1
	default:
		return 0
	}
}

// levelSide signs the pivot-confidence factor: +1 when support is the
// nearer qualifying level, -1 for resistance, 0 with no levels.
func levelSide(snap model.IndicatorSnapshot) float64 {
	switch {
	case snap.HasSupport && snap.HasResistance:
		if snap.Close-snap.Support <= snap.Resistance-snap.Close {
			return 1
		}
		return -1
	case snap.HasSupport:
		return 1
	case snap.HasResistance:
		return -1
	default:
		return 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
