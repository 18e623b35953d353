package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
)

type expirySweeper interface {
	FindOverdueActive(ctx context.Context, cutoff time.Time) ([]models.GroupOrder, error)
}

type expiryCanceller interface {
	Expire(ctx context.Context, id uuid.UUID) error
}

// GroupOrderExpiryJobParams configure the deadline sweep.
type GroupOrderExpiryJobParams struct {
	Logger      *logger.Logger
	Repository  expirySweeper
	GroupOrders expiryCanceller
}

// NewGroupOrderExpiryJob cancels active group orders whose deadline passed
// without reaching the target quantity.
func NewGroupOrderExpiryJob(params GroupOrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("group order repository required")
	}
	if params.GroupOrders == nil {
		return nil, fmt.Errorf("group order service required")
	}
	return &groupOrderExpiryJob{
		logg: params.Logger,
		repo: params.Repository,
		svc:  params.GroupOrders,
		now:  time.Now,
	}, nil
}

type groupOrderExpiryJob struct {
	logg *logger.Logger
	repo expirySweeper
	svc  expiryCanceller
	now  func() time.Time
}

func (j *groupOrderExpiryJob) Name() string { return "group-order-expiry" }

func (j *groupOrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	overdue, err := j.repo.FindOverdueActive(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find overdue group orders: %w", err)
	}
	if len(overdue) == 0 {
		return nil
	}

	var failures error
	expired := 0
	for i := range overdue {
		id := overdue[i].ID
		if err := j.svc.Expire(ctx, id); err != nil {
			// An UpdateConflict here means live traffic is still mutating the
			// order; the next sweep will settle it.
			if pkgerrors.HasCode(err, pkgerrors.CodeUpdateConflict) {
				continue
			}
			failures = multierr.Append(failures, fmt.Errorf("expire %s: %w", id, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"overdue": len(overdue),
		"expired": expired,
	})
	j.logg.Info(logCtx, "group order expiry sweep complete")
	return failures
}
