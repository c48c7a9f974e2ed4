// Package redis publishes bars, indicator snapshots, confluence scores
// and signals to Redis, and consumes the inbound bar stream. The key
// layout follows one convention throughout: a capped stream for
// history, a latest key with TTL for cold starts, and a pubsub channel
// for live subscribers.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: ~1 Globex week of 1m bars.
	barStreamMaxLen = 8000
	// Signal streams are tiny; keep a generous audit window.
	signalStreamMaxLen = 1000

	defaultLatestTTL = 30 * time.Minute
)

// Key layout helpers. tf label is "1m"/"15m".
func barStreamKey(tf model.Timeframe, symbol string) string {
	return "bars:" + tf.String() + ":" + symbol
}

func barLatestKey(tf model.Timeframe, symbol string) string {
	return "bars:" + tf.String() + ":latest:" + symbol
}

func barPubSubChannel(tf model.Timeframe, symbol string) string {
	return "pub:bars:" + tf.String() + ":" + symbol
}

func snapLatestKey(tf model.Timeframe, symbol string) string {
	return "snap:" + tf.String() + ":latest:" + symbol
}

func snapPubSubChannel(tf model.Timeframe, symbol string) string {
	return "pub:snap:" + tf.String() + ":" + symbol
}

func scoreLatestKey(symbol string) string { return "score:latest:" + symbol }
func scorePubSubChannel(symbol string) string { return "pub:score:" + symbol }

func signalStreamKey(symbol string) string { return "signals:" + symbol }
func signalPubSubChannel(symbol string) string { return "pub:signals:" + symbol }

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes engine output to Redis.
type Writer struct {
	client *goredis.Client

	// OnWrite is called with the duration of every bar pipeline
	// (optional).
	OnWrite func(time.Duration)
}

// Client returns the underlying Redis client for health checks and
// pubsub subscriptions.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return &Writer{client: client}, nil
}

// Run reads closed bars from barCh and publishes them. Blocks until
// ctx is cancelled or barCh is closed.
func (w *Writer) Run(ctx context.Context, barCh <-chan bus.Msg) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-barCh:
			if !ok {
				return
			}
			w.writeBar(ctx, m.TF, m.Bar)
		}
	}
}

// writeBar performs the pipelined XADD + SET + PUBLISH for one bar.
func (w *Writer) writeBar(ctx context.Context, tf model.Timeframe, b model.Bar) {
	jsonData := string(b.JSON())
	start := time.Now()

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: barStreamKey(tf, b.Symbol),
		MaxLen: barStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, barLatestKey(tf, b.Symbol), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, barPubSubChannel(tf, b.Symbol), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("redis bar pipeline failed", "tf", tf.String(), "ts", b.TS, "err", err)
		return
	}
	if w.OnWrite != nil {
		w.OnWrite(time.Since(start))
	}
}

// PublishSnapshot publishes an indicator snapshot: SET latest +
// PUBLISH. Snapshots are derivable from the bar streams so they get no
// stream of their own.
func (w *Writer) PublishSnapshot(ctx context.Context, snap model.IndicatorSnapshot) error {
	jsonData := string(snap.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, snapLatestKey(snap.TF, snap.Symbol), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, snapPubSubChannel(snap.TF, snap.Symbol), jsonData)

	_, err := pipe.Exec(ctx)
	return err
}

// PublishScore publishes the latest confluence score.
func (w *Writer) PublishScore(ctx context.Context, score model.ConfluenceScore) error {
	jsonData := string(score.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, scoreLatestKey(score.Symbol), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, scorePubSubChannel(score.Symbol), jsonData)

	_, err := pipe.Exec(ctx)
	return err
}

// PublishSignal records a signal on its audit stream and notifies live
// subscribers.
func (w *Writer) PublishSignal(ctx context.Context, sig model.Signal) error {
	jsonData := string(sig.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: signalStreamKey(sig.Symbol),
		MaxLen: signalStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, signalPubSubChannel(sig.Symbol), jsonData)

	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
