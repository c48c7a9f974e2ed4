// Package tfbuilder provides an incremental timeframe resampler. It
// consumes closed 1m bars and maintains the forming 15m bar in O(1) per
// input bar. When an input bar lands in a new bucket the previous bar
// is finalized and handed to the caller.
package tfbuilder

import (
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// Builder resamples closed fast-timeframe bars into one slower
// timeframe. Single-consumer: call OnBar from one goroutine.
type Builder struct {
	tf model.Timeframe

	bucket  int64 // bucket start = ts - ts%tf (Unix seconds)
	bar     model.Bar
	count   int
	started bool

	// StaleTolerance rejects input bars whose bucket is behind the
	// forming bucket by more than this. Set to 0 to disable.
	StaleTolerance time.Duration

	// OnStaleBar is called when a stale bar is rejected (optional).
	OnStaleBar func()
}

// New creates a builder that aggregates into tf buckets.
func New(tf model.Timeframe) *Builder {
	return &Builder{
		tf:             tf,
		StaleTolerance: 2 * time.Minute,
	}
}

// OnBar folds one closed fast bar into the forming bucket. When the bar
// opens a new bucket the previous bucket's bar is finalized and
// returned. Buckets with no constituent bars (feed gaps) are simply
// never produced; the next bar starts a fresh bucket.
func (b *Builder) OnBar(in model.Bar) (model.Bar, bool) {
	ts := in.TS.Unix()
	tf := int64(b.tf)
	bucket := ts - ts%tf

	if b.started && bucket < b.bucket {
		lag := time.Duration(b.bucket-bucket) * time.Second
		if b.StaleTolerance > 0 && lag > b.StaleTolerance {
			if b.OnStaleBar != nil {
				b.OnStaleBar()
			}
			return model.Bar{}, false
		}
		// Small lag inside tolerance: fold into the forming bucket
		// rather than corrupting an already-emitted one.
		b.merge(in)
		return model.Bar{}, false
	}

	if b.started && bucket > b.bucket {
		done := b.bar
		b.start(bucket, in)
		return done, true
	}

	if !b.started {
		b.start(bucket, in)
		return model.Bar{}, false
	}

	b.merge(in)
	return model.Bar{}, false
}

// Flush finalizes and returns the forming bar, if any, and resets the
// builder. The returned bar covers a partial bucket and is not a
// closed bar: it must never be fed to the engine, only inspected or
// archived.
func (b *Builder) Flush() (model.Bar, bool) {
	if !b.started {
		return model.Bar{}, false
	}
	done := b.bar
	b.started = false
	b.count = 0
	return done, true
}

// Forming returns a copy of the in-progress bar and the number of
// constituent bars folded into it so far.
func (b *Builder) Forming() (model.Bar, int, bool) {
	if !b.started {
		return model.Bar{}, 0, false
	}
	return b.bar, b.count, true
}

// TF returns the output timeframe.
func (b *Builder) TF() model.Timeframe { return b.tf }

func (b *Builder) start(bucket int64, in model.Bar) {
	b.bucket = bucket
	b.started = true
	b.count = 1
	b.bar = model.Bar{
		Symbol: in.Symbol,
		TS:     time.Unix(bucket, 0).UTC(),
		Open:   in.Open,
		High:   in.High,
		Low:    in.Low,
		Close:  in.Close,
		Volume: in.Volume,
	}
}

func (b *Builder) merge(in model.Bar) {
	if in.High > b.bar.High {
		b.bar.High = in.High
	}
	if in.Low < b.bar.Low {
		b.bar.Low = in.Low
	}
	b.bar.Close = in.Close
	b.bar.Volume += in.Volume
	b.count++
}
