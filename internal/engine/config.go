package engine

import (
	"fmt"

	"github.com/saistv/corolla-trading-bot/internal/confluence"
	"github.com/saistv/corolla-trading-bot/internal/indicator"
	"github.com/saistv/corolla-trading-bot/internal/model"
)

// ConfigError reports an invalid construction parameter. Configuration
// problems are fatal: the engine refuses to start rather than process a
// single bar with broken lookbacks.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine config: %s: %s", e.Field, e.Reason)
}

// Config is the static engine configuration, supplied at construction.
type Config struct {
	Symbol string

	FastTF model.Timeframe
	SlowTF model.Timeframe

	// MaxBars bounds retained bar and snapshot history per timeframe.
	MaxBars int

	Fast indicator.Config // fast (1m) indicator parameters
	Slow indicator.Config // slow (15m) indicator parameters

	Confluence confluence.Config

	// WindowBars is the momentum window length N, counted on FastTF.
	WindowBars int

	// RescoreEveryBar re-samples signal strength at emission time
	// instead of freezing it at window open. Off by default: frozen
	// strength favors reproducibility over freshness.
	RescoreEveryBar bool
}

// DefaultConfig returns the tuned NQ parameters the strategy shipped
// with: ATF 6/14/2.0 on 1m and 10/14/2.0 on 15m, SQZMOM 20/2.0/1.5,
// 5-bar pivot wings, 0.1% proximity band, 0.6 activation threshold,
// 6-bar momentum window.
func DefaultConfig() Config {
	return Config{
		Symbol:  "NQ",
		FastTF:  model.TF1m,
		SlowTF:  model.TF15m,
		MaxBars: 2000,
		Fast: indicator.Config{
			ATFMain: 6, ATFSmooth: 14, ATFSens: 2.0,
			SqzLength: 20, SqzBBMult: 2.0, SqzKCMult: 1.5,
			PivotLeft: 5, PivotRight: 5, PivotMaxLevels: 10,
		},
		Slow: indicator.Config{
			ATFMain: 10, ATFSmooth: 14, ATFSens: 2.0,
			SqzLength: 20, SqzBBMult: 2.0, SqzKCMult: 1.5,
			PivotLeft: 5, PivotRight: 5, PivotMaxLevels: 10,
		},
		Confluence: confluence.Config{
			Weights:   confluence.DefaultWeights(),
			Tolerance: 0.001,
			Threshold: 0.6,
		},
		WindowBars: 6,
	}
}

// Validate checks every parameter and returns a ConfigError on the
// first violation.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return &ConfigError{"Symbol", "must not be empty"}
	}
	if c.FastTF <= 0 || c.SlowTF <= 0 {
		return &ConfigError{"Timeframes", "must be positive"}
	}
	if c.FastTF >= c.SlowTF {
		return &ConfigError{"Timeframes", "fast timeframe must be shorter than slow"}
	}
	if c.MaxBars <= 0 {
		return &ConfigError{"MaxBars", "must be positive"}
	}
	if c.WindowBars <= 0 {
		return &ConfigError{"WindowBars", "must be positive"}
	}
	if err := validateIndicator("Fast", c.Fast); err != nil {
		return err
	}
	if err := validateIndicator("Slow", c.Slow); err != nil {
		return err
	}
	if c.Confluence.Tolerance < 0 {
		return &ConfigError{"Confluence.Tolerance", "must not be negative"}
	}
	if c.Confluence.Threshold <= 0 || c.Confluence.Threshold > 1 {
		return &ConfigError{"Confluence.Threshold", "must be in (0, 1]"}
	}
	w := c.Confluence.Weights
	if w.ATF1m == 0 && w.ATF15m == 0 && w.Momentum == 0 && w.Proximity == 0 && w.Pivot == 0 {
		return &ConfigError{"Confluence.Weights", "all weights are zero"}
	}
	return nil
}

func validateIndicator(prefix string, ic indicator.Config) error {
	if ic.ATFMain <= 0 || ic.ATFSmooth <= 0 {
		return &ConfigError{prefix + ".ATF", "lookbacks must be positive"}
	}
	if ic.ATFSens <= 0 {
		return &ConfigError{prefix + ".ATFSens", "must be positive"}
	}
	if ic.SqzLength < 2 {
		return &ConfigError{prefix + ".SqzLength", "must be at least 2"}
	}
	if ic.SqzBBMult <= 0 || ic.SqzKCMult <= 0 {
		return &ConfigError{prefix + ".SqzMult", "band multipliers must be positive"}
	}
	if ic.PivotLeft <= 0 || ic.PivotRight <= 0 {
		return &ConfigError{prefix + ".Pivot", "window widths must be positive"}
	}
	if ic.PivotMaxLevels <= 0 {
		return &ConfigError{prefix + ".PivotMaxLevels", "must be positive"}
	}
	return nil
}
