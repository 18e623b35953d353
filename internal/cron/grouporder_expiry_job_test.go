package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
)

type fakeExpirySweeper struct {
	overdue []models.GroupOrder
	err     error
	cutoff  time.Time
}

func (f *fakeExpirySweeper) FindOverdueActive(_ context.Context, cutoff time.Time) ([]models.GroupOrder, error) {
	f.cutoff = cutoff
	return f.overdue, f.err
}

type fakeExpiryCanceller struct {
	expired []uuid.UUID
	errs    map[uuid.UUID]error
}

func (f *fakeExpiryCanceller) Expire(_ context.Context, id uuid.UUID) error {
	if err, ok := f.errs[id]; ok {
		return err
	}
	f.expired = append(f.expired, id)
	return nil
}

func newExpiryJobTest(t *testing.T, sweeper *fakeExpirySweeper, canceller *fakeExpiryCanceller) *groupOrderExpiryJob {
	t.Helper()

	job, err := NewGroupOrderExpiryJob(GroupOrderExpiryJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Repository:  sweeper,
		GroupOrders: canceller,
	})
	if err != nil {
		t.Fatalf("NewGroupOrderExpiryJob: %v", err)
	}
	return job.(*groupOrderExpiryJob)
}

func overdueGroupOrder() models.GroupOrder {
	return models.GroupOrder{
		ID:       uuid.New(),
		Status:   enums.GroupOrderStatusActive,
		Deadline: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGroupOrderExpiryJob_expiresOverdueOrders(t *testing.T) {
	first := overdueGroupOrder()
	second := overdueGroupOrder()
	sweeper := &fakeExpirySweeper{overdue: []models.GroupOrder{first, second}}
	canceller := &fakeExpiryCanceller{}
	job := newExpiryJobTest(t, sweeper, canceller)
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sweeper.cutoff.Equal(now) {
		t.Fatalf("unexpected cutoff: %v", sweeper.cutoff)
	}
	if len(canceller.expired) != 2 {
		t.Fatalf("expected 2 expirations, got %d", len(canceller.expired))
	}
}

func TestGroupOrderExpiryJob_skipsContestedOrders(t *testing.T) {
	contested := overdueGroupOrder()
	quiet := overdueGroupOrder()
	sweeper := &fakeExpirySweeper{overdue: []models.GroupOrder{contested, quiet}}
	canceller := &fakeExpiryCanceller{
		errs: map[uuid.UUID]error{
			contested.ID: pkgerrors.New(pkgerrors.CodeUpdateConflict, "busy"),
		},
	}
	job := newExpiryJobTest(t, sweeper, canceller)

	// Live traffic on one order must not fail the sweep or block the rest.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(canceller.expired) != 1 {
		t.Fatalf("expected 1 expiration, got %d", len(canceller.expired))
	}
	if canceller.expired[0] != quiet.ID {
		t.Fatalf("expired wrong order: %s", canceller.expired[0])
	}
}

func TestGroupOrderExpiryJob_aggregatesHardFailures(t *testing.T) {
	broken := overdueGroupOrder()
	healthy := overdueGroupOrder()
	sweeper := &fakeExpirySweeper{overdue: []models.GroupOrder{broken, healthy}}
	canceller := &fakeExpiryCanceller{
		errs: map[uuid.UUID]error{
			broken.ID: errors.New("database gone"),
		},
	}
	job := newExpiryJobTest(t, sweeper, canceller)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(canceller.expired) != 1 {
		t.Fatalf("expected the healthy order to still expire, got %d", len(canceller.expired))
	}
}

func TestGroupOrderExpiryJob_noOverdueOrdersIsQuiet(t *testing.T) {
	sweeper := &fakeExpirySweeper{}
	canceller := &fakeExpiryCanceller{}
	job := newExpiryJobTest(t, sweeper, canceller)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(canceller.expired) != 0 {
		t.Fatalf("expected no expirations, got %d", len(canceller.expired))
	}
}
