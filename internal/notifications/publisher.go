package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	"github.com/vendorconnect/vendorconnect-backend/pkg/redis"
)

// Event is the realtime payload pushed to group order channels. Subscribers
// (websocket gateways, vendor dashboards) treat it as a hint to refresh; the
// outbox stream remains the durable record.
type Event struct {
	Type       enums.OutboxEventType `json:"type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Data       any                   `json:"data"`
}

// Publisher fans out group order events to live subscribers. Delivery is
// best-effort: a failed publish must never fail the operation that produced
// the event.
type Publisher interface {
	Publish(ctx context.Context, groupOrderID uuid.UUID, event Event) error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher publishes events on per-group-order redis channels.
func NewRedisPublisher(client *redis.Client) (Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisPublisher{client: client}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, groupOrderID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	channel := p.client.GroupOrderChannel(groupOrderID.String())
	if err := p.client.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// NopPublisher discards events. Used where realtime fan-out is not wired,
// such as the cron worker in environments without redis.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, Event) error { return nil }
