package replay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/model"
	sqlitestore "github.com/saistv/corolla-trading-bot/internal/store/sqlite"
)

func seedArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.db")
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	base := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		b := model.Bar{
			Symbol: "NQ",
			TS:     base.Add(time.Duration(i) * time.Minute),
			Open:   18000, High: 18002, Low: 17999, Close: 18001,
			Volume: 100,
		}
		if err := w.WriteBar(model.TF1m, b); err != nil {
			t.Fatalf("write 1m bar %d: %v", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		b := model.Bar{
			Symbol: "NQ",
			TS:     base.Add(time.Duration(i) * 15 * time.Minute),
			Open:   18000, High: 18005, Low: 17995, Close: 18001,
			Volume: 1500,
		}
		if err := w.WriteBar(model.TF15m, b); err != nil {
			t.Fatalf("write 15m bar %d: %v", i, err)
		}
	}
	return path
}

func TestReplayer_InterleavesByCloseTime(t *testing.T) {
	path := seedArchive(t)
	r, err := sqlitestore.NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	out := make(chan bus.Msg, 64)
	rep := New(r, "NQ")
	if err := rep.Run(context.Background(), []model.Timeframe{model.TF1m, model.TF15m}, 0, 0, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	var msgs []bus.Msg
	for m := range out {
		msgs = append(msgs, m)
	}
	if len(msgs) != 32 {
		t.Fatalf("emitted %d msgs, want 32", len(msgs))
	}

	// Non-decreasing close times, faster bar first on close-time ties.
	closeOf := func(m bus.Msg) time.Time { return m.Bar.TS.Add(m.TF.Duration()) }
	for i := 1; i < len(msgs); i++ {
		prev, cur := msgs[i-1], msgs[i]
		if closeOf(cur).Before(closeOf(prev)) {
			t.Fatalf("msg %d out of close order: %s closes before %s", i, closeOf(cur), closeOf(prev))
		}
		if closeOf(cur).Equal(closeOf(prev)) && cur.TF < prev.TF {
			t.Fatalf("msg %d: fast bar should precede the slow bar closing at %s", i, closeOf(cur))
		}
	}

	// A 15m bar must never be emitted before any of its constituent
	// 1m bars, or the engine would score fast bars against a slow
	// snapshot summarizing their own future.
	seen1m := make(map[time.Time]bool)
	for i, m := range msgs {
		switch m.TF {
		case model.TF1m:
			seen1m[m.Bar.TS] = true
		case model.TF15m:
			for k := 0; k < 15; k++ {
				constituent := m.Bar.TS.Add(time.Duration(k) * time.Minute)
				if !seen1m[constituent] {
					t.Fatalf("msg %d: 15m bar at %s emitted before its 1m constituent at %s",
						i, m.Bar.TS, constituent)
				}
			}
		}
	}

	if msgs[0].TF != model.TF1m {
		t.Errorf("first msg TF = %s, want the opening 1m bar", msgs[0].TF)
	}
	if msgs[15].TF != model.TF15m {
		t.Errorf("msg 15 TF = %s, want the first 15m bar right after its final constituent", msgs[15].TF)
	}
	if msgs[31].TF != model.TF15m {
		t.Errorf("last msg TF = %s, want the closing 15m bar", msgs[31].TF)
	}
}

func TestReplayer_AfterTSFilters(t *testing.T) {
	path := seedArchive(t)
	r, err := sqlitestore.NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	cutoff := time.Date(2025, 3, 10, 14, 45, 0, 0, time.UTC).Unix()
	out := make(chan bus.Msg, 64)
	if err := New(r, "NQ").Run(context.Background(), []model.Timeframe{model.TF1m}, cutoff, 0, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)

	count := 0
	for m := range out {
		if m.Bar.TS.Unix() <= cutoff {
			t.Errorf("bar at %s not filtered by afterTS", m.Bar.TS)
		}
		count++
	}
	if count != 14 {
		t.Errorf("emitted %d bars after cutoff, want 14", count)
	}
}

func TestReplayer_EmptyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	w.Close()

	r, err := sqlitestore.NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	out := make(chan bus.Msg, 1)
	if err := New(r, "NQ").Run(context.Background(), []model.Timeframe{model.TF1m}, 0, 0, out); err != nil {
		t.Fatalf("Run on empty archive: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no emissions, got %d", len(out))
	}
}
