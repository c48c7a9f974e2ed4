// Package model defines the core data types shared across the signal engine:
// OHLCV bars, timeframes, indicator snapshots, confluence scores, momentum
// windows, and emitted signals.
package model

import (
	"encoding/json"
	"time"
)

// Timeframe is a bar granularity in seconds.
type Timeframe int

const (
	TF1m  Timeframe = 60
	TF15m Timeframe = 900
)

// Duration returns the timeframe as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Second
}

// String returns a compact label like "1m" or "15m".
func (tf Timeframe) String() string {
	if tf%60 == 0 {
		return itoa(int(tf)/60) + "m"
	}
	return itoa(int(tf)) + "s"
}

// Bar is a single closed OHLCV bar. Prices are in instrument points
// (NQ trades in 0.25-point ticks). Immutable once appended to a store.
type Bar struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC, TF-aligned)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// SameOHLCV reports whether two bars carry identical price/volume data.
// Used to distinguish an idempotent feed retransmit from a conflicting
// duplicate timestamp.
func (b Bar) SameOHLCV(o Bar) bool {
	return b.Open == o.Open && b.High == o.High && b.Low == o.Low &&
		b.Close == o.Close && b.Volume == o.Volume
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// itoa is a minimal int-to-string without importing strconv in hot path.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
