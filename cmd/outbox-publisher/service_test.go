package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/config"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox/payloads"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (fakePubSubClient) Ping(context.Context) error            { return nil }
func (fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > len(f.events) {
		limit = len(f.events)
	}
	batch := f.events[:limit]
	f.events = f.events[limit:]
	return batch, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeRegistry struct {
	resolved *outbox.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(models.OutboxEvent) (*outbox.ResolvedEvent, error) {
	return f.resolved, f.err
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakePublisher struct {
	results []publishResult
}

func (f *fakePublisher) Publish(_ context.Context, _ *gcppubsub.Message) publishResult {
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, registry registryResolver) *Service {
	t.Helper()

	cfg := &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      2,
			PollIntervalMS: 100,
			MaxAttempts:    5,
		},
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               fakeDB{},
		PubSub:           fakePubSubClient{},
		Repository:       repo,
		Registry:         registry,
		PublisherFactory: func(_ string) publisher { return pub },
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func outboxRow(tb testing.TB, eventType enums.OutboxEventType) models.OutboxEvent {
	tb.Helper()

	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateGroupOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func resolvedFor(event models.OutboxEvent, topic string) *outbox.ResolvedEvent {
	return &outbox.ResolvedEvent{
		Descriptor: outbox.EventDescriptor{
			Topic:         topic,
			AggregateType: event.AggregateType,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    event.ID.String(),
			OccurredAt: time.Now().UTC(),
		},
		Payload: &payloads.ParticipantChangedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	first := outboxRow(t, enums.EventParticipantJoined)
	second := outboxRow(t, enums.EventParticipantJoined)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	registry := &fakeRegistry{resolved: resolvedFor(first, "group-orders-topic")}
	service := newTestService(t, repo, pub, registry)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != first.ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != second.ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServiceProcessBatchMarksUnresolvableFailed(t *testing.T) {
	event := outboxRow(t, enums.EventOrderPlaced)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	registry := &fakeRegistry{err: outbox.NonRetryableError{Err: errors.New("unknown event type")}}
	service := newTestService(t, repo, &fakePublisher{}, registry)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("expected the row marked failed, got %d", got)
	}
	if got := len(repo.published); got != 0 {
		t.Fatalf("expected nothing published, got %d", got)
	}
}

func TestServiceProcessBatchEmptyTableIsIdle(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestServiceMissingPublisherIsNonRetryable(t *testing.T) {
	event := outboxRow(t, enums.EventParticipantJoined)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	registry := &fakeRegistry{resolved: resolvedFor(event, "group-orders-topic")}
	service := newTestService(t, repo, nil, registry)
	service.publisherFactory = func(string) publisher { return nil }

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("expected the row marked failed, got %d", got)
	}
}

func TestNextBackoffDoublesUpToCap(t *testing.T) {
	base := 100 * time.Millisecond
	ceiling := time.Second

	if got := nextBackoff(base, base, ceiling); got != 200*time.Millisecond {
		t.Fatalf("unexpected backoff: %v", got)
	}
	if got := nextBackoff(900*time.Millisecond, base, ceiling); got != ceiling {
		t.Fatalf("expected cap, got %v", got)
	}
	if got := nextBackoff(0, base, ceiling); got != 200*time.Millisecond {
		t.Fatalf("unexpected backoff from zero: %v", got)
	}
}

func TestWithJitterStaysWithinWindow(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		d := withJitter(base)
		if d < base || d > base+jitterWindow {
			t.Fatalf("jittered duration out of range: %v", d)
		}
	}
	if withJitter(0) != 0 {
		t.Fatalf("zero duration should stay zero")
	}
}
