package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
)

type fakeRetentionTx struct{}

func (fakeRetentionTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRetentionRepo struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	return f.deleted, f.err
}

func newRetentionJobTest(t *testing.T, repo *fakeRetentionRepo, retention, minAttempts int) *outboxRetentionJob {
	t.Helper()

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		DB:          fakeRetentionTx{},
		Repository:  repo,
		Retention:   retention,
		MinAttempts: minAttempts,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionJob_prunesPastRetentionWindow(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 42}
	job := newRetentionJobTest(t, repo, 7, 3)
	now := time.Date(2026, 4, 10, 6, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantCutoff := now.Add(-7 * 24 * time.Hour)
	if !repo.cutoff.Equal(wantCutoff) {
		t.Fatalf("unexpected cutoff: %v", repo.cutoff)
	}
	if repo.minAttempts != 3 {
		t.Fatalf("unexpected min attempts: %d", repo.minAttempts)
	}
}

func TestOutboxRetentionJob_defaults(t *testing.T) {
	repo := &fakeRetentionRepo{}
	job := newRetentionJobTest(t, repo, 0, 0)

	if job.retention != outboxRetentionDays {
		t.Fatalf("unexpected retention: %d", job.retention)
	}
	if job.minAttempts != outboxMinAttempts {
		t.Fatalf("unexpected min attempts: %d", job.minAttempts)
	}
}

func TestOutboxRetentionJob_propagatesFailure(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("relation missing")}
	job := newRetentionJobTest(t, repo, 0, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
