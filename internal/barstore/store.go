// Package barstore provides the append-only, per-timeframe bar history
// that every indicator reads from. A store owns one timeframe; bars must
// arrive in strictly increasing timestamp order. Retransmits of the last
// bar are tolerated as no-ops so a flaky feed cannot corrupt state.
package barstore

import (
	"errors"
	"fmt"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

var (
	// ErrOutOfOrder is returned when a bar's timestamp is older than the
	// last stored bar. The caller must not retry: silently reordering
	// bars would corrupt indicator state.
	ErrOutOfOrder = errors.New("bar out of order")

	// ErrDuplicate is returned when a bar repeats the last timestamp with
	// different OHLCV data.
	ErrDuplicate = errors.New("conflicting duplicate bar")
)

// Store is the append-only bar sequence for a single timeframe.
// Single-goroutine usage — the engine serializes all access.
type Store struct {
	tf      model.Timeframe
	bars    []model.Bar
	maxBars int
}

// New creates a Store for the given timeframe. maxBars bounds retained
// history; older bars are evicted from the front once exceeded.
func New(tf model.Timeframe, maxBars int) *Store {
	if maxBars < 1 {
		maxBars = 1
	}
	return &Store{
		tf:      tf,
		bars:    make([]model.Bar, 0, maxBars),
		maxBars: maxBars,
	}
}

// Append adds a closed bar. Returns (true, nil) when the bar was stored,
// (false, nil) for an identical retransmit of the last bar, and
// (false, err) for out-of-order or conflicting input.
func (s *Store) Append(b model.Bar) (bool, error) {
	if n := len(s.bars); n > 0 {
		last := s.bars[n-1]
		if b.TS.Equal(last.TS) {
			if b.SameOHLCV(last) {
				return false, nil // feed retransmit, idempotent
			}
			return false, fmt.Errorf("%w: tf=%s ts=%v", ErrDuplicate, s.tf, b.TS)
		}
		if b.TS.Before(last.TS) {
			return false, fmt.Errorf("%w: tf=%s ts=%v last=%v", ErrOutOfOrder, s.tf, b.TS, last.TS)
		}
	}

	s.bars = append(s.bars, b)
	if len(s.bars) > s.maxBars {
		// Evict oldest. Copy down so the backing array does not pin
		// evicted bars forever.
		n := copy(s.bars, s.bars[len(s.bars)-s.maxBars:])
		s.bars = s.bars[:n]
	}
	return true, nil
}

// Latest returns the most recent n bars, oldest first. Returns fewer than
// n when history is short — callers treat short history as "warming".
func (s *Store) Latest(n int) []model.Bar {
	if n <= 0 {
		return nil
	}
	if n > len(s.bars) {
		n = len(s.bars)
	}
	out := make([]model.Bar, n)
	copy(out, s.bars[len(s.bars)-n:])
	return out
}

// Last returns the most recent bar, if any.
func (s *Store) Last() (model.Bar, bool) {
	if len(s.bars) == 0 {
		return model.Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Len returns the number of retained bars.
func (s *Store) Len() int { return len(s.bars) }

// TF returns the timeframe this store owns.
func (s *Store) TF() model.Timeframe { return s.tf }
