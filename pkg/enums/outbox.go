package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateGroupOrder OutboxAggregateType = "group_order"
	AggregateOrder      OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateGroupOrder,
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventParticipantJoined      OutboxEventType = "participant_joined"
	EventParticipantLeft        OutboxEventType = "participant_left"
	EventGroupOrderStateChanged OutboxEventType = "status_changed"
	EventOrderPlaced            OutboxEventType = "order_placed"
	EventGroupOrderExpired      OutboxEventType = "group_order_expired"
	EventOrderStateChanged      OutboxEventType = "order_state_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventParticipantJoined,
	EventParticipantLeft,
	EventGroupOrderStateChanged,
	EventOrderPlaced,
	EventGroupOrderExpired,
	EventOrderStateChanged,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
