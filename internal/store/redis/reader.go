package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/bus"
	"github.com/saistv/corolla-trading-bot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string // consumer group name, e.g. "signalengine"
	ConsumerName  string // unique consumer name, e.g. hostname
}

// Reader consumes closed 1m bars from the feed's Redis Stream via a
// consumer group, giving at-least-once delivery across restarts. The
// engine's idempotent bar handling makes redelivery harmless.
type Reader struct {
	client        *goredis.Client
	consumerGroup string
	consumerName  string
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	group := cfg.ConsumerGroup
	if group == "" {
		group = "signalengine"
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "worker-1"
	}

	slog.Info("redis reader connected", "addr", cfg.Addr, "group", group, "consumer", consumer)
	return &Reader{
		client:        client,
		consumerGroup: group,
		consumerName:  consumer,
	}, nil
}

// Client returns the underlying Redis client.
func (r *Reader) Client() *goredis.Client { return r.client }

// EnsureConsumerGroup creates the consumer group on the given stream if
// it doesn't exist. Uses "$" as start ID (only new messages) for fresh
// groups.
func (r *Reader) EnsureConsumerGroup(ctx context.Context, stream string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, r.consumerGroup, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create %s: %w", stream, err)
	}
	return nil
}

// ConsumeBars reads bars from the feed stream using the consumer group
// and sends them on out tagged with tf. Blocks on XREADGROUP; returns
// when ctx is cancelled.
func (r *Reader) ConsumeBars(ctx context.Context, stream string, tf model.Timeframe, out chan<- bus.Msg) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			slog.Error("redis xreadgroup failed", "stream", stream, "err", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, res := range results {
			for _, msg := range res.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					r.client.XAck(ctx, res.Stream, r.consumerGroup, msg.ID)
					continue
				}

				var b model.Bar
				if err := json.Unmarshal([]byte(data), &b); err != nil {
					slog.Warn("redis bar unmarshal failed", "id", msg.ID, "err", err)
					// ACK even on bad message to avoid poison pill
					r.client.XAck(ctx, res.Stream, r.consumerGroup, msg.ID)
					continue
				}

				select {
				case out <- bus.Msg{TF: tf, Bar: b}:
				case <-ctx.Done():
					return ctx.Err()
				}

				// ACK after successful handoff
				r.client.XAck(ctx, res.Stream, r.consumerGroup, msg.ID)
			}
		}
	}
}

// RecoverPending claims and re-delivers unACKed messages from a
// previous crash, preserving at-least-once semantics.
func (r *Reader) RecoverPending(ctx context.Context, stream string, tf model.Timeframe, out chan<- bus.Msg) error {
	for {
		pending, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
			Stream: stream,
			Group:  r.consumerGroup,
			Start:  "-",
			End:    "+",
			Count:  100,
		}).Result()
		if err != nil || len(pending) == 0 {
			return err
		}

		ids := make([]string, len(pending))
		for i, p := range pending {
			ids[i] = p.ID
		}

		claimed, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
			Stream:   stream,
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			MinIdle:  0,
			Messages: ids,
		}).Result()
		if err != nil {
			return fmt.Errorf("xclaim %s: %w", stream, err)
		}

		for _, msg := range claimed {
			data, ok := msg.Values["data"].(string)
			if !ok {
				r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
				continue
			}

			var b model.Bar
			if err := json.Unmarshal([]byte(data), &b); err != nil {
				r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
				continue
			}

			select {
			case out <- bus.Msg{TF: tf, Bar: b}:
			case <-ctx.Done():
				return ctx.Err()
			}
			r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
		}

		if len(claimed) < len(ids) {
			// Some IDs vanished (trimmed); nothing more to claim.
			return nil
		}
	}
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
