// Package engine is the computational core of the signal bot: it owns
// the per-timeframe bar stores and indicator state, recomputes the
// confluence score after every closed bar on either timeframe, drives
// the momentum-window timer, and emits at most one signal per window.
//
// The engine performs no I/O and never blocks. One call to OnBarClose
// runs the full store → indicators → scorer → timer → emitter pass
// atomically under an instrument-level lock; readers only ever observe
// consistent as-of-last-bar-close state.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/saistv/corolla-trading-bot/internal/barstore"
	"github.com/saistv/corolla-trading-bot/internal/confluence"
	"github.com/saistv/corolla-trading-bot/internal/indicator"
	"github.com/saistv/corolla-trading-bot/internal/model"
	"github.com/saistv/corolla-trading-bot/internal/signaltimer"
)

// ErrUnknownTimeframe is returned for bars on a timeframe the engine
// was not configured to track.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// tfState bundles everything one timeframe owns. Indicator state is
// only ever read by the scorer through immutable snapshot copies.
type tfState struct {
	store   *barstore.Store
	set     *indicator.Set
	latest  model.IndicatorSnapshot
	warmed  bool
	history []model.IndicatorSnapshot
}

// Engine is the single-instrument signal core.
type Engine struct {
	cfg Config

	mu     sync.Mutex
	fast   *tfState
	slow   *tfState
	scorer *confluence.Scorer
	timer  *signaltimer.Timer

	lastScore model.ConfluenceScore
	haveScore bool
	signals   []model.Signal

	// Optional hooks, invoked synchronously inside the bar-close pass.
	// Set before the first OnBarClose; handlers must not call back into
	// the engine.
	OnSignal     func(model.Signal)
	OnSnapshot   func(model.IndicatorSnapshot)
	OnScore      func(model.ConfluenceScore)
	OnTimerEvent func(signaltimer.Event)
	OnRetransmit func(model.Timeframe)
}

// New validates cfg and builds an Engine. Fails fast on bad parameters
// before any bar is processed.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg: cfg,
		fast: &tfState{
			store: barstore.New(cfg.FastTF, cfg.MaxBars),
			set:   indicator.NewSet(cfg.Symbol, cfg.FastTF, cfg.Fast),
		},
		slow: &tfState{
			store: barstore.New(cfg.SlowTF, cfg.MaxBars),
			set:   indicator.NewSet(cfg.Symbol, cfg.SlowTF, cfg.Slow),
		},
		scorer: confluence.New(cfg.Confluence),
		timer:  signaltimer.New(cfg.WindowBars),
	}, nil
}

// OnBarClose is the sole inbound entry point. It must be called exactly
// once per closed bar, in timestamp order per timeframe. Identical
// retransmits are no-ops; out-of-order or conflicting bars are rejected
// without touching indicator state.
func (e *Engine) OnBarClose(tf model.Timeframe, bar model.Bar) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.state(tf)
	if err != nil {
		return err
	}

	appended, err := st.store.Append(bar)
	if err != nil {
		return fmt.Errorf("bar close %s: %w", tf, err)
	}
	if !appended {
		// Feed retransmit: no recomputation, no duplicate signal.
		if e.OnRetransmit != nil {
			e.OnRetransmit(tf)
		}
		return nil
	}

	snap := st.set.Update(bar)
	st.latest = snap
	st.warmed = true
	st.history = append(st.history, snap)
	if len(st.history) > e.cfg.MaxBars {
		n := copy(st.history, st.history[len(st.history)-e.cfg.MaxBars:])
		st.history = st.history[:n]
	}
	if e.OnSnapshot != nil {
		e.OnSnapshot(snap)
	}

	if tf == e.cfg.FastTF {
		e.emitTimerEvent(e.timer.OnFastBar())
	}

	// Re-evaluate confluence with the most recently closed snapshot
	// from the other timeframe — never waiting for alignment.
	score := e.scorer.Score(bar.TS, e.fast.latest, e.slow.latest)
	e.lastScore = score
	e.haveScore = true
	if e.OnScore != nil {
		e.OnScore(score)
	}

	for _, ev := range e.timer.Evaluate(score) {
		e.emitTimerEvent(ev)
	}

	e.emit(bar, score)
	return nil
}

// emit produces this window's single signal if the timer holds an open,
// not-yet-emitted window.
func (e *Engine) emit(bar model.Bar, score model.ConfluenceScore) {
	state, win := e.timer.State()
	if state != model.WindowOpen || win.Emitted {
		return
	}

	strength := win.Strength
	if e.cfg.RescoreEveryBar {
		strength = score.Score
		if strength < 0 {
			strength = -strength
		}
	}

	sig := model.Signal{
		Symbol:    e.cfg.Symbol,
		TS:        bar.TS,
		Direction: win.Direction,
		Strength:  strength,
		WindowID:  win.ID,
	}
	e.timer.MarkEmitted()
	e.signals = append(e.signals, sig)
	if e.OnSignal != nil {
		e.OnSignal(sig)
	}
}

// Ack consumes the open window once execution acknowledges its signal.
// Returns true when the window was consumed.
func (e *Engine) Ack(windowID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev := e.timer.Ack(windowID)
	e.emitTimerEvent(ev)
	return ev == signaltimer.EventConsumed
}

func (e *Engine) emitTimerEvent(ev signaltimer.Event) {
	if ev != signaltimer.EventNone && e.OnTimerEvent != nil {
		e.OnTimerEvent(ev)
	}
}

func (e *Engine) state(tf model.Timeframe) (*tfState, error) {
	switch tf {
	case e.cfg.FastTF:
		return e.fast, nil
	case e.cfg.SlowTF:
		return e.slow, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimeframe, tf)
	}
}

// ─── Introspection (read-only, consistent as of the last bar close) ───

// Snapshot returns the latest indicator snapshot for a timeframe.
func (e *Engine) Snapshot(tf model.Timeframe) (model.IndicatorSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.state(tf)
	if err != nil || !st.warmed {
		return model.IndicatorSnapshot{}, false
	}
	return st.latest, true
}

// SnapshotHistory returns copies of the most recent n retained
// snapshots for a timeframe, oldest first.
func (e *Engine) SnapshotHistory(tf model.Timeframe, n int) []model.IndicatorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.state(tf)
	if err != nil || n <= 0 {
		return nil
	}
	if n > len(st.history) {
		n = len(st.history)
	}
	out := make([]model.IndicatorSnapshot, n)
	copy(out, st.history[len(st.history)-n:])
	return out
}

// LatestScore returns the most recent confluence score.
func (e *Engine) LatestScore() (model.ConfluenceScore, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastScore, e.haveScore
}

// TimerState returns the timer state and a copy of the open window.
func (e *Engine) TimerState() (model.WindowState, *model.MomentumWindow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer.State()
}

// Signals returns a copy of the append-only emission log.
func (e *Engine) Signals() []model.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Signal, len(e.signals))
	copy(out, e.signals)
	return out
}

// Bars returns the most recent n bars for a timeframe, oldest first.
func (e *Engine) Bars(tf model.Timeframe, n int) []model.Bar {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.state(tf)
	if err != nil {
		return nil
	}
	return st.store.Latest(n)
}

// Symbol returns the configured instrument.
func (e *Engine) Symbol() string { return e.cfg.Symbol }
