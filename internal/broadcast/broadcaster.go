package broadcast

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/richarrd92/hobbymatch/internal/domain"
	"github.com/richarrd92/hobbymatch/internal/metrics"
)

// relayChannel is the single pub/sub channel shared by all instances.
const relayChannel = "feed:broadcast"

// Broadcaster delivers feed events to every live connection. When a relay
// client is configured, events are published to a shared Redis channel and
// local delivery happens through the subscription, so all instances
// (including the producer) observe one consistent delivery path. A publish
// or subscription failure permanently disables the relay for this process
// and every subsequent broadcast goes directly local.
type Broadcaster struct {
	hub          *Hub
	relay        *redis.Client // nil disables distributed mode
	pubsub       *redis.PubSub
	healthy      atomic.Bool
	closing      atomic.Bool
	listenerDone chan struct{}
}

// NewBroadcaster creates a broadcaster on top of hub. relay may be nil, in
// which case every broadcast is local-only. With a relay, the background
// listener starts immediately and runs until Close or a transport failure.
func NewBroadcaster(hub *Hub, relay *redis.Client) *Broadcaster {
	b := &Broadcaster{hub: hub, relay: relay}
	if relay != nil {
		b.healthy.Store(true)
		b.pubsub = relay.Subscribe(context.Background(), relayChannel)
		b.listenerDone = make(chan struct{})
		go b.listen()
		slog.Info("Distributed broadcasting enabled", "channel", relayChannel)
	}
	return b
}

// Broadcast delivers event to every live connection, across instances when
// the relay is healthy. Failures never propagate to the caller.
func (b *Broadcaster) Broadcast(ctx context.Context, event domain.Event) {
	data, err := domain.MarshalEvent(event)
	if err != nil {
		slog.Error("Failed to marshal event", "kind", event.Kind(), "error", err)
		return
	}

	if b.relay != nil && b.healthy.Load() {
		err := b.relay.Publish(ctx, relayChannel, data).Err()
		if err == nil {
			metrics.BroadcastsTotal.WithLabelValues(string(event.Kind()), "relay").Inc()
			return
		}
		slog.Error("Relay publish failed, falling back to local delivery", "error", err)
		metrics.RelayPublishFailures.Inc()
		b.disable()
	}

	metrics.BroadcastsTotal.WithLabelValues(string(event.Kind()), "local").Inc()
	b.hub.Deliver(data)
}

// DistributedActive reports whether the relay is configured and still healthy.
func (b *Broadcaster) DistributedActive() bool {
	return b.relay != nil && b.healthy.Load()
}

// Close tears down the relay subscription and waits for the listener to
// exit. The hub is stopped separately by its owner.
func (b *Broadcaster) Close() {
	if b.pubsub == nil {
		return
	}
	b.closing.Store(true)
	_ = b.pubsub.Close()
	<-b.listenerDone
}

// listen consumes relay messages and fans them out locally. Malformed
// messages are logged and skipped; the message channel closing outside of
// shutdown means the subscription died, which disables the relay.
func (b *Broadcaster) listen() {
	defer close(b.listenerDone)

	for msg := range b.pubsub.Channel() {
		data := []byte(msg.Payload)
		if _, err := domain.UnmarshalEvent(data); err != nil {
			slog.Warn("Dropping malformed relay message", "error", err)
			metrics.RelayMessagesReceived.WithLabelValues("malformed").Inc()
			continue
		}
		metrics.RelayMessagesReceived.WithLabelValues("ok").Inc()
		b.hub.Deliver(data)
	}

	if b.closing.Load() {
		return
	}
	slog.Error("Relay subscription terminated")
	b.disable()
}

// disable transitions relay health to its terminal disabled state. The
// transition is logged once; a broadcast racing it may be delivered twice,
// which clients tolerate.
func (b *Broadcaster) disable() {
	if b.healthy.CompareAndSwap(true, false) {
		metrics.RelayDisabled.Set(1)
		slog.Warn("Distributed broadcasting disabled for the rest of the process lifetime")
	}
}
