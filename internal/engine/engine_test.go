package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/confluence"
	"github.com/saistv/corolla-trading-bot/internal/indicator"
	"github.com/saistv/corolla-trading-bot/internal/model"
	"github.com/saistv/corolla-trading-bot/internal/signaltimer"
)

var testBase = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func fastBar(i int, close, high, low float64) model.Bar {
	return model.Bar{
		Symbol: "NQ",
		TS:     testBase.Add(time.Duration(i) * time.Minute),
		Open:   close, High: high, Low: low, Close: close,
		Volume: 100,
	}
}

func slowBar(i int, close, high, low float64) model.Bar {
	return model.Bar{
		Symbol: "NQ",
		TS:     testBase.Add(time.Duration(i) * 15 * time.Minute),
		Open:   close, High: high, Low: low, Close: close,
		Volume: 1500,
	}
}

// shortConfig uses short lookbacks so scenarios warm up in a handful of
// bars, and weights only the 1m trend and momentum factors so expected
// scores stay hand-checkable.
func shortConfig() Config {
	ic := indicator.Config{
		ATFMain: 3, ATFSmooth: 3, ATFSens: 1.0,
		SqzLength: 3, SqzBBMult: 2.0, SqzKCMult: 1.5,
		PivotLeft: 2, PivotRight: 1, PivotMaxLevels: 4,
	}
	return Config{
		Symbol:  "NQ",
		FastTF:  model.TF1m,
		SlowTF:  model.TF15m,
		MaxBars: 256,
		Fast:    ic,
		Slow:    ic,
		Confluence: confluence.Config{
			Weights:   confluence.Weights{ATF1m: 0.5, Momentum: 0.5},
			Tolerance: 0.001,
			Threshold: 0.4,
		},
		WindowBars: 3,
	}
}

// feedConsolidation plays 10 flat bars at 18000 so both the trend
// filter and the squeeze detector settle into a quiet state.
func feedConsolidation(t *testing.T, e *Engine) {
	t.Helper()
	for i := 1; i <= 10; i++ {
		if err := e.OnBarClose(model.TF1m, fastBar(i, 18000, 18001, 17999)); err != nil {
			t.Fatalf("consolidation bar %d: %v", i, err)
		}
	}
}

// feedBreakout plays the breakout bar (11) and the follow-through ramp.
func feedBreakout(t *testing.T, e *Engine, through int) {
	t.Helper()
	if err := e.OnBarClose(model.TF1m, fastBar(11, 18050, 18051, 17999)); err != nil {
		t.Fatalf("breakout bar: %v", err)
	}
	close := 18050.0
	for i := 12; i <= through; i++ {
		close += 5
		if err := e.OnBarClose(model.TF1m, fastBar(i, close, close+1, close-6)); err != nil {
			t.Fatalf("ramp bar %d: %v", i, err)
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty symbol", func(c *Config) { c.Symbol = "" }},
		{"fast not shorter than slow", func(c *Config) { c.FastTF = c.SlowTF }},
		{"zero window", func(c *Config) { c.WindowBars = 0 }},
		{"threshold above one", func(c *Config) { c.Confluence.Threshold = 1.5 }},
		{"zero atf lookback", func(c *Config) { c.Fast.ATFMain = 0 }},
		{"all weights zero", func(c *Config) { c.Confluence.Weights = confluence.Weights{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := shortConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("expected config error")
			} else {
				var ce *ConfigError
				if !errors.As(err, &ce) {
					t.Fatalf("expected *ConfigError, got %T", err)
				}
			}
		})
	}
}

func TestEngine_UnknownTimeframe(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	err = e.OnBarClose(model.Timeframe(300), fastBar(1, 18000, 18001, 17999))
	if !errors.Is(err, ErrUnknownTimeframe) {
		t.Fatalf("expected ErrUnknownTimeframe, got %v", err)
	}
}

func TestEngine_RetransmitIsNoOp(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	feedConsolidation(t, e)

	snaps := 0
	e.OnSnapshot = func(model.IndicatorSnapshot) { snaps++ }

	b := fastBar(11, 18004, 18005, 18003)
	if err := e.OnBarClose(model.TF1m, b); err != nil {
		t.Fatal(err)
	}
	if err := e.OnBarClose(model.TF1m, b); err != nil {
		t.Fatalf("retransmit must not error: %v", err)
	}
	if snaps != 1 {
		t.Fatalf("retransmit recomputed indicators: %d snapshots", snaps)
	}
	if got := len(e.Bars(model.TF1m, 100)); got != 11 {
		t.Fatalf("expected 11 stored bars, got %d", got)
	}
}

func TestEngine_ConflictingBarRejected(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.OnBarClose(model.TF1m, fastBar(1, 18000, 18001, 17999)); err != nil {
		t.Fatal(err)
	}
	conflict := fastBar(1, 18010, 18011, 18009)
	if err := e.OnBarClose(model.TF1m, conflict); err == nil {
		t.Fatal("expected error for conflicting duplicate")
	}
}

func TestEngine_BreakoutEmitsOneLongSignal(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}

	var events []signaltimer.Event
	e.OnTimerEvent = func(ev signaltimer.Event) { events = append(events, ev) }

	feedConsolidation(t, e)
	if st, _ := e.TimerState(); st != model.Idle {
		t.Fatalf("window opened during consolidation: %v", st)
	}
	if sc, ok := e.LatestScore(); !ok || sc.Actionable {
		t.Fatalf("consolidation score should be non-actionable: %+v", sc)
	}

	// Breakout bar: the trend filter flips up, the squeeze releases and
	// momentum turns positive, so both weighted factors score +1 and the
	// aggregate is exactly 1.0.
	feedBreakout(t, e, 12)

	sigs := e.Signals()
	if len(sigs) != 1 {
		t.Fatalf("expected exactly one signal, got %d", len(sigs))
	}
	sig := sigs[0]
	if sig.Direction != model.Long {
		t.Fatalf("expected long signal, got %v", sig.Direction)
	}
	if sig.WindowID != 1 {
		t.Fatalf("expected window ID 1, got %d", sig.WindowID)
	}
	if !sig.TS.Equal(testBase.Add(11 * time.Minute)) {
		t.Fatalf("signal should carry the breakout bar timestamp, got %v", sig.TS)
	}
	if sig.Strength < 0.999 || sig.Strength > 1.0 {
		t.Fatalf("expected full-confluence strength, got %v", sig.Strength)
	}
	if len(events) != 1 || events[0] != signaltimer.EventOpened {
		t.Fatalf("expected a single opened event, got %v", events)
	}
	if st, win := e.TimerState(); st != model.WindowOpen || !win.Emitted {
		t.Fatalf("window should be open and emitted, got %v %+v", st, win)
	}
}

func TestEngine_WindowExpiresWithoutAck(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	feedConsolidation(t, e)
	feedBreakout(t, e, 14) // window opened at bar 11; bars 12-14 elapse

	if st, _ := e.TimerState(); st != model.WindowOpen {
		t.Fatal("window should survive through N subsequent bars")
	}

	// Bar 15 is the (N+1)th bar after open: the unconsumed window expires.
	if err := e.OnBarClose(model.TF1m, fastBar(15, 18070, 18071, 18064)); err != nil {
		t.Fatal(err)
	}
	if st, _ := e.TimerState(); st != model.Idle {
		t.Fatal("window should have expired")
	}
	if got := len(e.Signals()); got != 1 {
		t.Fatalf("expiry must not emit more signals: got %d", got)
	}
}

func TestEngine_AckConsumesWindow(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	feedConsolidation(t, e)
	feedBreakout(t, e, 11)

	if e.Ack(99) {
		t.Fatal("ack with wrong window ID must be rejected")
	}
	if !e.Ack(1) {
		t.Fatal("ack with matching window ID must consume")
	}
	if st, _ := e.TimerState(); st != model.Idle {
		t.Fatal("consumed window should return to idle")
	}
	if e.Ack(1) {
		t.Fatal("double ack must be rejected")
	}
}

func TestEngine_SlowBarsDoNotAgeWindow(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	feedConsolidation(t, e)
	feedBreakout(t, e, 11)

	// Far more slow closes than the window length; only fast bars count.
	for i := 1; i <= 5; i++ {
		if err := e.OnBarClose(model.TF15m, slowBar(i, 18020, 18021, 18019)); err != nil {
			t.Fatalf("slow bar %d: %v", i, err)
		}
	}
	if st, _ := e.TimerState(); st != model.WindowOpen {
		t.Fatal("slow-timeframe closes must not age the momentum window")
	}
	if got := len(e.Signals()); got != 1 {
		t.Fatalf("expected one signal, got %d", got)
	}
}

func TestEngine_SnapshotIntrospection(t *testing.T) {
	e, err := New(shortConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Snapshot(model.TF1m); ok {
		t.Fatal("snapshot should be absent before any bar")
	}
	feedConsolidation(t, e)

	snap, ok := e.Snapshot(model.TF1m)
	if !ok {
		t.Fatal("expected a snapshot after bars closed")
	}
	if snap.Close != 18000 {
		t.Fatalf("expected latest close 18000, got %v", snap.Close)
	}
	hist := e.SnapshotHistory(model.TF1m, 4)
	if len(hist) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(hist))
	}
	if !hist[len(hist)-1].TS.Equal(snap.TS) {
		t.Fatal("history should end at the latest snapshot")
	}
}

// replay determinism: two engines fed the identical interleaved bar
// sequence must produce byte-identical signal logs and final scores.
func TestEngine_ReplayDeterminism(t *testing.T) {
	run := func() ([]model.Signal, model.ConfluenceScore) {
		e, err := New(shortConfig())
		if err != nil {
			t.Fatal(err)
		}
		seed := int64(42)
		price := 18000.0
		slowIdx := 0
		for i := 1; i <= 120; i++ {
			seed = (seed*1103515245 + 12345) % (1 << 31)
			step := float64(seed%9-4) * 0.25
			price += step
			b := fastBar(i, price, price+0.75, price-0.75)
			if err := e.OnBarClose(model.TF1m, b); err != nil {
				t.Fatal(err)
			}
			if i%15 == 0 {
				slowIdx++
				sb := slowBar(slowIdx, price, price+2, price-2)
				if err := e.OnBarClose(model.TF15m, sb); err != nil {
					t.Fatal(err)
				}
			}
		}
		sc, _ := e.LatestScore()
		return e.Signals(), sc
	}

	sigsA, scoreA := run()
	sigsB, scoreB := run()
	if !reflect.DeepEqual(sigsA, sigsB) {
		t.Fatalf("signal logs diverged:\n%v\n%v", sigsA, sigsB)
	}
	if scoreA != scoreB {
		t.Fatalf("final scores diverged: %+v vs %+v", scoreA, scoreB)
	}
}
