package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// pendingWrite is a publish buffered during circuit-open state.
type pendingWrite struct {
	Kind string // "snapshot", "score", "signal"
	Data []byte // JSON-encoded payload
}

// BufferedWriter wraps a Writer with a circuit breaker. While the
// circuit is open, publishes are buffered locally and flushed when it
// closes again, so a Redis outage degrades to delayed delivery instead
// of data loss. Signals are never dropped: when the buffer fills,
// snapshots and scores are evicted first.
type BufferedWriter struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer []pendingWrite
	maxBuf int

	// Callbacks for metrics (optional).
	OnBuffer func()
	OnFlush  func(count int)
}

// NewBufferedWriter creates a BufferedWriter wrapping the given Writer.
func NewBufferedWriter(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingWrite, 0, 256),
		maxBuf: maxBufferSize,
	}

	// Flush buffered writes whenever the circuit closes.
	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bw.flush()
		}
	}

	return bw
}

// PublishSnapshot publishes a snapshot through the circuit breaker,
// buffering it if the circuit is open.
func (bw *BufferedWriter) PublishSnapshot(snap model.IndicatorSnapshot) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.PublishSnapshot(bw.ctx, snap)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite("snapshot", &snap)
		return nil
	}
	return err
}

// PublishScore publishes a score through the circuit breaker.
func (bw *BufferedWriter) PublishScore(score model.ConfluenceScore) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.PublishScore(bw.ctx, score)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite("score", &score)
		return nil
	}
	return err
}

// PublishSignal publishes a signal through the circuit breaker.
func (bw *BufferedWriter) PublishSignal(sig model.Signal) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.PublishSignal(bw.ctx, sig)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite("signal", &sig)
		return nil
	}
	return err
}

func (bw *BufferedWriter) bufferWrite(kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("buffered writer marshal failed", "kind", kind, "err", err)
		return
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		// Evict the oldest non-signal entry; drop the oldest entry
		// outright only if the buffer is all signals.
		evicted := false
		for i, pw := range bw.buffer {
			if pw.Kind != "signal" {
				bw.buffer = append(bw.buffer[:i], bw.buffer[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			bw.buffer = bw.buffer[1:]
		}
	}
	bw.buffer = append(bw.buffer, pendingWrite{Kind: kind, Data: data})

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays all buffered publishes through the underlying writer.
func (bw *BufferedWriter) flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	toFlush := bw.buffer
	bw.buffer = make([]pendingWrite, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for _, pw := range toFlush {
		switch pw.Kind {
		case "snapshot":
			var snap model.IndicatorSnapshot
			if json.Unmarshal(pw.Data, &snap) == nil {
				bw.writer.PublishSnapshot(bw.ctx, snap)
			}
		case "score":
			var score model.ConfluenceScore
			if json.Unmarshal(pw.Data, &score) == nil {
				bw.writer.PublishScore(bw.ctx, score)
			}
		case "signal":
			var sig model.Signal
			if json.Unmarshal(pw.Data, &sig) == nil {
				bw.writer.PublishSignal(bw.ctx, sig)
			}
		}
		flushed++
	}

	slog.Info("buffered writer flushed", "writes", flushed)
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered writes waiting to flush.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bw *BufferedWriter) Underlying() *Writer {
	return bw.writer
}
