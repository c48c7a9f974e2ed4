package model

import (
	"encoding/json"
	"time"
)

// Trend is a three-way direction classification used by indicators.
type Trend int

const (
	TrendDown Trend = -1
	TrendFlat Trend = 0
	TrendUp   Trend = 1
)

// Direction is the side of a confluence bias or emitted signal.
type Direction int

const (
	Short Direction = -1
	Flat  Direction = 0
	Long  Direction = 1
)

// String returns "LONG", "SHORT" or "FLAT".
func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// IndicatorSnapshot is the immutable per-bar output of one timeframe's
// indicator set. Keyed by (TF, TS); superseded snapshots are retained by
// the engine for audit and replay, never mutated.
type IndicatorSnapshot struct {
	Symbol string    `json:"symbol"`
	TF     Timeframe `json:"tf"`
	TS     time.Time `json:"ts"`
	Close  float64   `json:"close"` // close of the triggering bar

	// ATF trend filter
	ATFReady bool    `json:"atf_ready"`
	ATFBasis float64 `json:"atf_basis"` // baseline EMA
	ATFBand  float64 `json:"atf_band"`  // sens × smoothed true range
	ATFTrend Trend   `json:"atf_trend"`

	// Squeeze momentum
	SqzReady    bool    `json:"sqz_ready"`
	SqueezeOn   bool    `json:"squeeze_on"`
	SqzReleased bool    `json:"sqz_released"` // squeeze fired off on this bar
	Momentum    float64 `json:"momentum"`
	MomentumDir Trend   `json:"momentum_dir"`

	// Pivot support/resistance
	HasSupport      bool    `json:"has_support"`
	Support         float64 `json:"support"`
	HasResistance   bool    `json:"has_resistance"`
	Resistance      float64 `json:"resistance"`
	PivotConfidence float64 `json:"pivot_confidence"` // recency-weighted, [0,1]
}

// JSON returns the JSON-encoded snapshot.
func (s *IndicatorSnapshot) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}

// ConfluenceScore is the weighted multi-factor score computed after every
// closed bar on either tracked timeframe. A pure function of the two most
// recent indicator snapshots.
type ConfluenceScore struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"`

	// Weighted per-factor contributions (already multiplied by weight).
	ATF1m     float64 `json:"atf_1m"`
	ATF15m    float64 `json:"atf_15m"`
	Momentum  float64 `json:"momentum"`
	Proximity float64 `json:"proximity"`
	Pivot     float64 `json:"pivot"`

	Score      float64   `json:"score"` // aggregate in [-1, 1]
	Bias       Direction `json:"bias"`
	Actionable bool      `json:"actionable"`
}

// JSON returns the JSON-encoded score.
func (c *ConfluenceScore) JSON() []byte {
	out, _ := json.Marshal(c)
	return out
}

// WindowState is the signal timer's state.
type WindowState int

const (
	Idle WindowState = iota
	WindowOpen
)

// String returns "IDLE" or "WINDOW_OPEN".
func (s WindowState) String() string {
	if s == WindowOpen {
		return "WINDOW_OPEN"
	}
	return "IDLE"
}

// MomentumWindow is the bounded validity window opened when confluence
// first crosses the actionable threshold. IDs are monotonic so a replay
// of the same bar sequence reproduces the same windows byte-for-byte.
type MomentumWindow struct {
	ID           int64     `json:"id"`
	Direction    Direction `json:"direction"`
	OpenedAt     time.Time `json:"opened_at"`
	OpenedIndex  int64     `json:"opened_index"` // fast-TF bar count at open
	ExpiresAfter int       `json:"expires_after"`
	Strength     float64   `json:"strength"` // |score| frozen at open
	Emitted      bool      `json:"emitted"`
	Consumed     bool      `json:"consumed"`
}

// Signal is one append-only emission record handed to the execution
// collaborator. At most one Signal is emitted per momentum window.
type Signal struct {
	Symbol    string    `json:"symbol"`
	TS        time.Time `json:"ts"`
	Direction Direction `json:"direction"`
	Strength  float64   `json:"strength"`
	WindowID  int64     `json:"window_id"`
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	out, _ := json.Marshal(s)
	return out
}
