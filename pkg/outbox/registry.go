package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/vendorconnect/vendorconnect-backend/pkg/config"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   PayloadEnvelope
	Payload    interface{}
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.GroupOrdersTopic == "" {
		return nil, fmt.Errorf("group orders topic is required")
	}
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventParticipantJoined,
			AggregateType:  enums.AggregateGroupOrder,
			Topic:          cfg.GroupOrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.ParticipantChangedEvent{} },
		},
		{
			EventType:      enums.EventParticipantLeft,
			AggregateType:  enums.AggregateGroupOrder,
			Topic:          cfg.GroupOrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.ParticipantChangedEvent{} },
		},
		{
			EventType:      enums.EventGroupOrderStateChanged,
			AggregateType:  enums.AggregateGroupOrder,
			Topic:          cfg.GroupOrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.GroupOrderStateChangedEvent{} },
		},
		{
			EventType:      enums.EventGroupOrderExpired,
			AggregateType:  enums.AggregateGroupOrder,
			Topic:          cfg.GroupOrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.GroupOrderExpiredEvent{} },
		},
		{
			EventType:      enums.EventOrderPlaced,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderPlacedEvent{} },
		},
		{
			EventType:      enums.EventOrderStateChanged,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: func() interface{} { return &payloads.OrderStateChangedEvent{} },
		},
	} {
		reg.entries[desc.EventType] = desc
	}

	return reg, nil
}

// Resolve decodes an outbox row into its envelope and typed payload.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[row.EventType]
	if !ok {
		return nil, NonRetryableError{Err: fmt.Errorf("unknown event type %q", row.EventType)}
	}
	if desc.AggregateType != row.AggregateType {
		return nil, NonRetryableError{Err: fmt.Errorf(
			"event %q carries aggregate %q, expected %q", row.EventType, row.AggregateType, desc.AggregateType)}
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, NonRetryableError{Err: fmt.Errorf("decode envelope: %w", err)}
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NonRetryableError{Err: fmt.Errorf("decode payload for %q: %w", row.EventType, err)}
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
