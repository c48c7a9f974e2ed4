// Package ringbuf provides a lock-free, single-producer single-consumer
// (SPSC) ring buffer for closed bars. The feed goroutine pushes, the
// engine loop pops; atomics and cache-line padding keep the handoff
// contention-free.
package ringbuf

import (
	"sync/atomic"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

// cacheLine is the typical x86-64 cache line size used for padding.
const cacheLine = 64

// Item pairs a closed bar with the timeframe it closed on, so one ring
// carries both the 1m feed and the aggregated 15m bars in close order.
type Item struct {
	TF  model.Timeframe
	Bar model.Bar
}

// Ring is a lock-free SPSC ring buffer for closed bars.
// Size is rounded up to a power of two for fast bitwise modulo.
type Ring struct {
	buf  []Item
	mask uint64

	// Separate cache lines to prevent false sharing between producer
	// and consumer.
	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

// New creates a ring buffer. capacity is rounded up to the next power
// of two, minimum 2.
func New(capacity int) *Ring {
	c := nextPow2(capacity)
	if c < 2 {
		c = 2
	}
	return &Ring{
		buf:  make([]Item, c),
		mask: uint64(c - 1),
	}
}

// Push appends a closed bar. Returns false if the buffer is full (the
// bar is NOT written in that case). Non-blocking.
func (r *Ring) Push(tf model.Timeframe, b model.Bar) bool {
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}

	r.buf[head&r.mask] = Item{TF: tf, Bar: b}
	r.head.Store(head + 1)
	return true
}

// Pop retrieves the next closed bar. Returns false if empty. Non-blocking.
func (r *Ring) Pop() (Item, bool) {
	tail := r.tail.Load()
	head := r.head.Load()

	if tail >= head {
		return Item{}, false
	}

	it := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return it, true
}

// Len returns the current number of items in the buffer.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Overflow returns the total number of dropped pushes due to full buffer.
func (r *Ring) Overflow() uint64 {
	return r.overflow.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
