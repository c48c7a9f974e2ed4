// Package bus broadcasts closed bars from a single input channel to N
// consumers (engine, archive writer, stream publisher). A full output
// channel drops the bar for that consumer so a slow writer can never
// stall the signal path.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// Msg is one closed bar tagged with the timeframe it closed on.
type Msg struct {
	TF  model.Timeframe
	Bar model.Bar
}

// FanOut broadcasts bars from a single input channel to N output channels.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan Msg
	bufSize int

	// OnDrop is called when a bar is dropped for a subscriber.
	// subscriberIdx is the 0-based index of the slow consumer.
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel. Subscribe before
// calling Run.
func (f *FanOut) Subscribe() <-chan Msg {
	ch := make(chan Msg, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed; output channels are
// closed on return.
func (f *FanOut) Run(ctx context.Context, input <-chan Msg) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- m:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					} else {
						slog.Warn("bus output full, dropping bar",
							"subscriber", i, "tf", m.TF.String(), "ts", m.Bar.TS)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}

// ChannelStat reports (length, capacity) for one subscriber channel.
type ChannelStat struct {
	Len int
	Cap int
}

// ChannelStats returns saturation stats for every subscriber channel.
func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, ch := range f.outputs {
		stats[i] = ChannelStat{Len: len(ch), Cap: cap(ch)}
	}
	return stats
}
