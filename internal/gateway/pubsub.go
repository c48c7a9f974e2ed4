package gateway

import (
	"context"
	"log/slog"
	"strings"
)

// PubSubRouter bridges the engine's Redis pubsub channels to the Hub's
// WebSocket fan-out.
type PubSubRouter struct {
	hub *Hub
}

func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// Run pattern-subscribes to every engine channel and forwards payloads
// to the hub. Channel names are forwarded with the "pub:" prefix
// stripped, so clients see "bars:1m:NQ" rather than "pub:bars:1m:NQ".
// Blocks until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	sub := r.hub.Rdb.PSubscribe(ctx, "pub:*")
	defer sub.Close()

	slog.Info("pubsub router started", "pattern", "pub:*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				slog.Warn("pubsub channel closed")
				return
			}
			r.hub.Broadcast(strings.TrimPrefix(msg.Channel, "pub:"), []byte(msg.Payload))
		}
	}
}
