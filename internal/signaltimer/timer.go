// Package signaltimer enforces the bounded momentum window during which
// a confluence event stays actionable. The machine cycles between Idle
// and WindowOpen forever; there is no terminal state.
//
// Window rules: at most one open window at a time; a same-direction
// actionable event while a window is open neither extends nor resets it;
// an opposite-direction actionable event invalidates the open window
// immediately and may reopen in the new direction within the same pass;
// the window expires once N fast-timeframe bars elapse unconsumed.
package signaltimer

import (
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// Event describes what a timer transition produced, for metrics and logs.
type Event int

const (
	EventNone Event = iota
	EventOpened
	EventExpired
	EventInvalidated
	EventConsumed
)

func (e Event) String() string {
	switch e {
	case EventOpened:
		return "opened"
	case EventExpired:
		return "expired"
	case EventInvalidated:
		return "invalidated"
	case EventConsumed:
		return "consumed"
	default:
		return "none"
	}
}

// Timer is the Idle/WindowOpen state machine. Single-goroutine usage —
// the engine serializes all calls.
type Timer struct {
	n int // window length in fast-TF bars

	fastBars int64 // fast-TF closes seen so far
	nextID   int64
	win      *model.MomentumWindow
}

// New creates a Timer with an N-bar momentum window.
func New(n int) *Timer {
	return &Timer{n: n}
}

// OnFastBar counts a fast-timeframe close and expires the open window
// once more than N closes have elapsed since it opened. Must be called
// before Evaluate within the same bar pass.
func (t *Timer) OnFastBar() Event {
	t.fastBars++
	if t.win != nil && !t.win.Consumed && t.fastBars-t.win.OpenedIndex > int64(t.n) {
		t.win = nil
		return EventExpired
	}
	return EventNone
}

// Evaluate applies a confluence score to the state machine and returns
// the resulting events in order. At most two events occur in one pass:
// an opposite-direction invalidation followed by a reopen.
func (t *Timer) Evaluate(score model.ConfluenceScore) []Event {
	if !score.Actionable || score.Bias == model.Flat {
		return nil
	}

	var events []Event
	if t.win != nil {
		if t.win.Direction == score.Bias {
			// Same direction: idempotent, the window does not extend.
			return nil
		}
		// Opposite direction: invalidate, then fall through to reopen.
		t.win = nil
		events = append(events, EventInvalidated)
	}

	t.nextID++
	t.win = &model.MomentumWindow{
		ID:           t.nextID,
		Direction:    score.Bias,
		OpenedAt:     score.TS,
		OpenedIndex:  t.fastBars,
		ExpiresAfter: t.n,
		Strength:     abs(score.Score),
	}
	return append(events, EventOpened)
}

// MarkEmitted records that the emitter produced this window's one signal.
func (t *Timer) MarkEmitted() {
	if t.win != nil {
		t.win.Emitted = true
	}
}

// Ack consumes the open window after execution acknowledges its signal.
// Returns EventConsumed when the ID matches the open, emitted window.
func (t *Timer) Ack(windowID int64) Event {
	if t.win == nil || t.win.ID != windowID || !t.win.Emitted {
		return EventNone
	}
	t.win.Consumed = true
	t.win = nil
	return EventConsumed
}

// State returns the current state and, when open, a copy of the window.
func (t *Timer) State() (model.WindowState, *model.MomentumWindow) {
	if t.win == nil {
		return model.Idle, nil
	}
	cp := *t.win
	return model.WindowOpen, &cp
}

// OpenedAt is a convenience accessor for the open window's timestamp.
func (t *Timer) OpenedAt() (time.Time, bool) {
	if t.win == nil {
		return time.Time{}, false
	}
	return t.win.OpenedAt, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
