// Package replay reads archived bars from SQLite and feeds them back
// through the engine pipeline at a configurable speed. Used for
// deterministic reprocessing of recorded sessions and for demo mode.
package replay

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/model"
	sqlitestore "github.com/saistv/corolla-trading-bot/internal/store/sqlite"
)

// Replayer streams historical bars from a SQLite archive.
type Replayer struct {
	reader *sqlitestore.Reader
	symbol string
}

func New(reader *sqlitestore.Reader, symbol string) *Replayer {
	return &Replayer{reader: reader, symbol: symbol}
}

// Run replays all archived bars for the given timeframes into out.
// speed scales playback: 1.0 real-time, 10.0 ten times faster, 0 as
// fast as possible. afterTS skips bars at or before that Unix second.
func (r *Replayer) Run(ctx context.Context, tfs []model.Timeframe, afterTS int64, speed float64, out chan<- bus.Msg) error {
	var msgs []bus.Msg
	for _, tf := range tfs {
		bars, err := r.reader.ReadBars(r.symbol, tf, afterTS)
		if err != nil {
			return err
		}
		for _, b := range bars {
			msgs = append(msgs, bus.Msg{TF: tf, Bar: b})
		}
	}

	if len(msgs) == 0 {
		slog.Warn("replay: no archived bars", "symbol", r.symbol)
		return nil
	}

	// Bars carry bucket-start timestamps, so interleaving must order
	// by close time: a 15m bar closes with its final 1m constituent,
	// never before it. On equal close times the faster bar goes
	// first, matching the live builder which seals a bucket only
	// after its last constituent has been processed.
	sort.SliceStable(msgs, func(i, j int) bool {
		ci := msgs[i].Bar.TS.Add(msgs[i].TF.Duration())
		cj := msgs[j].Bar.TS.Add(msgs[j].TF.Duration())
		if ci.Equal(cj) {
			return msgs[i].TF < msgs[j].TF
		}
		return ci.Before(cj)
	})

	slog.Info("replay started",
		"symbol", r.symbol, "bars", len(msgs), "tfs", len(tfs), "speed", speed)

	var prevTS time.Time
	emitted := 0
	for _, m := range msgs {
		select {
		case <-ctx.Done():
			slog.Info("replay cancelled", "emitted", emitted)
			return ctx.Err()
		default:
		}

		if speed > 0 && !prevTS.IsZero() {
			if gap := m.Bar.TS.Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / speed)
				// Cap sleeps across session gaps.
				if scaled > 5*time.Second {
					scaled = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = m.Bar.TS

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- m:
		}
		emitted++
	}

	slog.Info("replay completed", "emitted", emitted)
	return nil
}
