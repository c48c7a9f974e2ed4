package config

import (
	"testing"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Symbol != "NQ" {
		t.Errorf("Symbol = %q, want NQ", cfg.Symbol)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.WindowBars != 6 {
		t.Errorf("WindowBars = %d, want 6", cfg.WindowBars)
	}
	if cfg.Threshold != 0.6 {
		t.Errorf("Threshold = %v, want 0.6", cfg.Threshold)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "ES")
	t.Setenv("MOMENTUM_WINDOW", "8")
	t.Setenv("SCORE_THRESHOLD", "0.7")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("SQZ_LENGTH", "not-a-number")

	cfg := Load()
	if cfg.Symbol != "ES" {
		t.Errorf("Symbol = %q, want ES", cfg.Symbol)
	}
	if cfg.WindowBars != 8 {
		t.Errorf("WindowBars = %d, want 8", cfg.WindowBars)
	}
	if cfg.Threshold != 0.7 {
		t.Errorf("Threshold = %v, want 0.7", cfg.Threshold)
	}
	if !cfg.DemoMode {
		t.Error("DemoMode should be true")
	}
	// Unparseable value falls back instead of failing startup.
	if cfg.SqzLength != 20 {
		t.Errorf("SqzLength = %d, want default 20", cfg.SqzLength)
	}
}

func TestEngineConfig_ValidatesWithDefaults(t *testing.T) {
	cfg := Load()
	ec := cfg.EngineConfig()

	if err := ec.Validate(); err != nil {
		t.Fatalf("default engine config invalid: %v", err)
	}
	if ec.FastTF != model.TF1m || ec.SlowTF != model.TF15m {
		t.Errorf("timeframes = %s/%s, want 1m/15m", ec.FastTF, ec.SlowTF)
	}
	if ec.Fast.ATFMain != 6 || ec.Slow.ATFMain != 10 {
		t.Errorf("ATF main lookbacks = %d/%d, want 6/10", ec.Fast.ATFMain, ec.Slow.ATFMain)
	}
}

func TestEngineConfig_CarriesOverrides(t *testing.T) {
	t.Setenv("ATF_FAST_MAIN", "8")
	t.Setenv("PROXIMITY_TOLERANCE", "0.002")
	t.Setenv("RESCORE_EVERY_BAR", "1")

	ec := Load().EngineConfig()
	if err := ec.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
	if ec.Fast.ATFMain != 8 {
		t.Errorf("Fast.ATFMain = %d, want 8", ec.Fast.ATFMain)
	}
	if ec.Confluence.Tolerance != 0.002 {
		t.Errorf("Tolerance = %v, want 0.002", ec.Confluence.Tolerance)
	}
	if !ec.RescoreEveryBar {
		t.Error("RescoreEveryBar should be set")
	}
}
