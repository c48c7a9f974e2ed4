package confluence

import (
	"math"
	"testing"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

func testConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		Tolerance: 0.001,
		Threshold: 0.6,
	}
}

func ts() time.Time {
	return time.Date(2025, 3, 10, 9, 45, 0, 0, time.UTC)
}

func bullishFast() model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:   "NQ",
		TF:       model.TF1m,
		TS:       ts(),
		Close:    18000,
		ATFReady: true, ATFTrend: model.TrendUp,
		SqzReady: true, SqzReleased: true, Momentum: 4.2, MomentumDir: model.TrendUp,
		HasSupport: true, Support: 17990, // within 0.1% of price
		PivotConfidence: 1.0,
	}
}

func bullishSlow() model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:   "NQ",
		TF:       model.TF15m,
		TS:       ts(),
		Close:    18000,
		ATFReady: true, ATFTrend: model.TrendUp,
	}
}

func TestScorer_FullBullishConfluence(t *testing.T) {
	s := New(testConfig())
	got := s.Score(ts(), bullishFast(), bullishSlow())

	// All five factors aligned long: 0.25 + 0.25 + 0.20 + 0.15 + 0.15 = 1.0
	if math.Abs(got.Score-1.0) > 1e-9 {
		t.Errorf("expected score 1.0, got %f", got.Score)
	}
	if got.Bias != model.Long {
		t.Errorf("expected long bias, got %v", got.Bias)
	}
	if !got.Actionable {
		t.Error("expected actionable at full confluence")
	}
}

func TestScorer_NotReadyIsNeutral(t *testing.T) {
	s := New(testConfig())
	full := s.Score(ts(), bullishFast(), bullishSlow())

	// Warming 15m ATF: its factor must contribute exactly zero, so the
	// magnitude is strictly below the all-ready case.
	slow := bullishSlow()
	slow.ATFReady = false
	slow.ATFTrend = model.TrendDown // must be ignored while warming
	got := s.Score(ts(), bullishFast(), slow)

	if got.ATF15m != 0 {
		t.Errorf("warming factor contributed %f, want 0", got.ATF15m)
	}
	if got.Score >= full.Score {
		t.Errorf("warming factor did not reduce magnitude: %f vs %f", got.Score, full.Score)
	}
	if math.Abs(got.Score-0.75) > 1e-9 {
		t.Errorf("expected score 0.75, got %f", got.Score)
	}
}

func TestScorer_ZeroValueSnapshotsAreNeutral(t *testing.T) {
	s := New(testConfig())
	got := s.Score(ts(), model.IndicatorSnapshot{}, model.IndicatorSnapshot{})
	if got.Score != 0 {
		t.Errorf("expected zero score from empty snapshots, got %f", got.Score)
	}
	if got.Bias != model.Flat || got.Actionable {
		t.Errorf("expected flat non-actionable bias, got %v actionable=%v", got.Bias, got.Actionable)
	}
}

func TestScorer_MomentumReleaseBonus(t *testing.T) {
	s := New(testConfig())

	fast := bullishFast()
	fast.SqzReleased = false
	plain := s.Score(ts(), fast, bullishSlow())

	fast.SqzReleased = true
	released := s.Score(ts(), fast, bullishSlow())

	if released.Momentum <= plain.Momentum {
		t.Errorf("release bonus missing: %f vs %f", released.Momentum, plain.Momentum)
	}
	if math.Abs(plain.Momentum-0.20*0.6) > 1e-9 {
		t.Errorf("plain momentum contribution = %f, want %f", plain.Momentum, 0.20*0.6)
	}
}

func TestScorer_ProximityTolerance(t *testing.T) {
	cases := []struct {
		name    string
		support float64
		want    float64
	}{
		{"just inside band", 17990, 1}, // 0.056% away
		{"far below", 17000, 0},        // 5.6% away
		{"stale level above price", 18020, 0},
	}
	s := New(testConfig())
	for _, tc := range cases {
		fast := bullishFast()
		fast.SqzReady = false
		fast.ATFReady = false
		fast.PivotConfidence = 0
		fast.Support = tc.support
		got := s.Score(ts(), fast, model.IndicatorSnapshot{})

		want := 0.15 * tc.want / 1.0
		if math.Abs(got.Proximity-want) > 1e-9 {
			t.Errorf("%s: proximity contribution = %f, want %f", tc.name, got.Proximity, want)
		}
	}
}

func TestScorer_NearResistanceReadsBearish(t *testing.T) {
	s := New(testConfig())
	fast := model.IndicatorSnapshot{
		Symbol: "NQ", TF: model.TF1m, TS: ts(), Close: 18000,
		HasResistance: true, Resistance: 18010,
		PivotConfidence: 0.5,
	}
	got := s.Score(ts(), fast, model.IndicatorSnapshot{})
	if got.Proximity >= 0 {
		t.Errorf("expected bearish proximity near resistance, got %f", got.Proximity)
	}
	if got.Pivot >= 0 {
		t.Errorf("expected bearish pivot factor near resistance, got %f", got.Pivot)
	}
	if got.Bias != model.Short {
		t.Errorf("expected short bias, got %v", got.Bias)
	}
}

func TestScorer_ThresholdGatesActionable(t *testing.T) {
	cfg := testConfig()
	cfg.Threshold = 0.5
	s := New(cfg)

	// Only the two ATF factors ready and aligned: score = 0.5 exactly.
	fast := model.IndicatorSnapshot{
		Symbol: "NQ", TF: model.TF1m, TS: ts(), Close: 18000,
		ATFReady: true, ATFTrend: model.TrendUp,
	}
	got := s.Score(ts(), fast, bullishSlow())
	if math.Abs(got.Score-0.5) > 1e-9 {
		t.Fatalf("expected score 0.5, got %f", got.Score)
	}
	if !got.Actionable {
		t.Error("score at threshold must be actionable")
	}

	cfg.Threshold = 0.51
	got = New(cfg).Score(ts(), fast, bullishSlow())
	if got.Actionable {
		t.Error("score below threshold must not be actionable")
	}
}
