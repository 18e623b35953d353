package grouporders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/internal/notifications"
	"github.com/vendorconnect/vendorconnect-backend/internal/pricing"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox/payloads"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
	"github.com/vendorconnect/vendorconnect-backend/pkg/types"
)

const (
	defaultUpdateRetries = 5
	conflictBackoff      = 10 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the group order state machine and participant bookkeeping.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*GroupOrderView, error)
	Get(ctx context.Context, id uuid.UUID) (*GroupOrderView, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*GroupOrderList, error)
	Join(ctx context.Context, input JoinInput) (*GroupOrderView, error)
	Leave(ctx context.Context, input LeaveInput) (*GroupOrderView, error)
	Place(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error)
	Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error)
	Expire(ctx context.Context, id uuid.UUID) error
}

// ServiceParams wire the aggregator's collaborators.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Realtime      notifications.Publisher
	Pricing       pricing.Resolver
	Logger        *logger.Logger
	UpdateRetries int
	Now           func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	realtime notifications.Publisher
	pricing  pricing.Resolver
	logg     *logger.Logger
	retries  int
	now      func() time.Time
}

// NewService builds the group order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("group order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Realtime == nil {
		return nil, fmt.Errorf("realtime publisher required")
	}
	if params.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver required")
	}
	retries := params.UpdateRetries
	if retries <= 0 {
		retries = defaultUpdateRetries
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		realtime: params.Realtime,
		pricing:  params.Pricing,
		logg:     params.Logger,
		retries:  retries,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*GroupOrderView, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.CreatorStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator store id required")
	}
	if input.TargetQuantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be at least 1")
	}
	if input.MaxParticipants < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max participants must be at least 1")
	}
	if input.BaseUnitPriceCents < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base unit price must be positive")
	}
	if !input.Deadline.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deadline must be in the future")
	}

	record := &models.GroupOrder{
		ProductID:         input.ProductID,
		CreatorStoreID:    input.CreatorStoreID,
		TargetQuantity:    input.TargetQuantity,
		MaxParticipants:   input.MaxParticipants,
		Participants:      types.Participants{},
		Status:            enums.GroupOrderStatusActive,
		Deadline:          input.Deadline,
		BasePriceCents:    input.BaseUnitPriceCents,
		PricePerUnitCents: input.BaseUnitPriceCents,
		Version:           1,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create group order")
	}
	view := toView(created)
	return &view, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*GroupOrderView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	record, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group order")
	}
	view := toView(record)
	return &view, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*GroupOrderList, error) {
	rows, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list group orders")
	}
	views := make([]GroupOrderView, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i]))
	}
	return &GroupOrderList{GroupOrders: views, NextCursor: next}, nil
}

func (s *service) Join(ctx context.Context, input JoinInput) (*GroupOrderView, error) {
	if input.GroupOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	return s.mutate(ctx, input.GroupOrderID, actorRef(input.Actor), func(record *models.GroupOrder) ([]pendingEvent, error) {
		if record.Status != enums.GroupOrderStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeOrderClosed, "group order is not accepting joins").
				WithDetails(map[string]string{"status": record.Status.String()})
		}
		if !s.now().Before(record.Deadline) {
			return nil, pkgerrors.New(pkgerrors.CodeDeadlinePassed, "group order deadline has passed")
		}
		// The cap governs distinct vendors, not total quantity: an existing
		// participant may always top up.
		if !record.Participants.Has(input.VendorID) && len(record.Participants) >= record.MaxParticipants {
			return nil, pkgerrors.New(pkgerrors.CodeCapacityExceeded, "participant limit reached").
				WithDetails(map[string]int{"max_participants": record.MaxParticipants})
		}

		participants := record.Participants.Clone()
		participants[input.VendorID] += input.Quantity
		record.Participants = participants
		record.CurrentQuantity += input.Quantity

		events := []pendingEvent{}
		if prior := record.Status; prior == enums.GroupOrderStatusActive {
			next := statusForQuantity(record.CurrentQuantity, record.TargetQuantity)
			if next != prior {
				record.Status = next
				events = append(events, s.statusChangedEvent(record, prior, "target reached"))
			}
		}
		if err := s.reprice(ctx, record); err != nil {
			return nil, err
		}

		joined := pendingEvent{
			eventType: enums.EventParticipantJoined,
			data: payloads.ParticipantChangedEvent{
				GroupOrderID:    record.ID,
				VendorStoreID:   input.VendorID,
				Quantity:        record.Participants[input.VendorID],
				CurrentQuantity: record.CurrentQuantity,
				TargetQuantity:  record.TargetQuantity,
				Status:          record.Status,
			},
		}
		return append([]pendingEvent{joined}, events...), nil
	})
}

func (s *service) Leave(ctx context.Context, input LeaveInput) (*GroupOrderView, error) {
	if input.GroupOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}

	return s.mutate(ctx, input.GroupOrderID, actorRef(input.Actor), func(record *models.GroupOrder) ([]pendingEvent, error) {
		switch record.Status {
		case enums.GroupOrderStatusActive, enums.GroupOrderStatusTargetReached:
		default:
			return nil, pkgerrors.New(pkgerrors.CodeOrderLocked, "group order no longer accepts leaves").
				WithDetails(map[string]string{"status": record.Status.String()})
		}
		if !record.Participants.Has(input.VendorID) {
			return nil, pkgerrors.New(pkgerrors.CodeNotAParticipant, "vendor is not a participant")
		}

		// Leaving withdraws the vendor's full quantity, never a partial decrement.
		withdrawn := record.Participants.Quantity(input.VendorID)
		participants := record.Participants.Clone()
		delete(participants, input.VendorID)
		record.Participants = participants
		record.CurrentQuantity -= withdrawn

		events := []pendingEvent{}
		if prior := record.Status; prior == enums.GroupOrderStatusTargetReached {
			next := statusForQuantity(record.CurrentQuantity, record.TargetQuantity)
			if next != prior {
				record.Status = next
				events = append(events, s.statusChangedEvent(record, prior, "dropped below target"))
			}
		}
		if err := s.reprice(ctx, record); err != nil {
			return nil, err
		}

		left := pendingEvent{
			eventType: enums.EventParticipantLeft,
			data: payloads.ParticipantChangedEvent{
				GroupOrderID:    record.ID,
				VendorStoreID:   input.VendorID,
				Quantity:        0,
				CurrentQuantity: record.CurrentQuantity,
				TargetQuantity:  record.TargetQuantity,
				Status:          record.Status,
			},
		}
		return append([]pendingEvent{left}, events...), nil
	})
}

func (s *service) Place(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error) {
	return s.transition(ctx, id, actor, enums.GroupOrderStatusOrdered, "placed by creator", func(record *models.GroupOrder) error {
		if record.CreatorStoreID != actor.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can place the group order")
		}
		if record.CurrentQuantity < record.TargetQuantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "target quantity not reached")
		}
		now := s.now()
		record.OrderedAt = &now
		return nil
	})
}

func (s *service) MarkDelivered(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error) {
	return s.transition(ctx, id, actor, enums.GroupOrderStatusDelivered, "fulfillment confirmed", func(record *models.GroupOrder) error {
		if record.CreatorStoreID != actor.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can confirm delivery")
		}
		now := s.now()
		record.DeliveredAt = &now
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*GroupOrderView, error) {
	return s.transition(ctx, id, actor, enums.GroupOrderStatusCancelled, "cancelled by creator", func(record *models.GroupOrder) error {
		if record.CreatorStoreID != actor.StoreID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the creator can cancel the group order")
		}
		now := s.now()
		record.CancelledAt = &now
		return nil
	})
}

// Expire cancels an overdue active group order that never reached its target.
// Called by the deadline sweep; not exposed through the API.
func (s *service) Expire(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	_, err := s.mutate(ctx, id, nil, func(record *models.GroupOrder) ([]pendingEvent, error) {
		if record.Status != enums.GroupOrderStatusActive {
			// Another actor resolved it between the sweep query and now.
			return nil, nil
		}
		if s.now().Before(record.Deadline) {
			return nil, nil
		}
		prior := record.Status
		record.Status = enums.GroupOrderStatusCancelled
		now := s.now()
		record.CancelledAt = &now
		return []pendingEvent{
			{
				eventType: enums.EventGroupOrderExpired,
				data: payloads.GroupOrderExpiredEvent{
					GroupOrderID:    record.ID,
					CurrentQuantity: record.CurrentQuantity,
					TargetQuantity:  record.TargetQuantity,
					ExpiredAt:       now,
				},
			},
			s.statusChangedEvent(record, prior, "deadline expired"),
		}, nil
	})
	return err
}

func (s *service) transition(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	to enums.GroupOrderStatus,
	reason string,
	prepare func(record *models.GroupOrder) error,
) (*GroupOrderView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	if actor.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	return s.mutate(ctx, id, actorRef(actor), func(record *models.GroupOrder) ([]pendingEvent, error) {
		prior := record.Status
		if !canTransition(prior, to) {
			return nil, transitionError(prior, to)
		}
		if err := prepare(record); err != nil {
			return nil, err
		}
		record.Status = to
		return []pendingEvent{s.statusChangedEvent(record, prior, reason)}, nil
	})
}

// pendingEvent is collected inside the mutation and dispatched twice: to the
// outbox within the committing transaction, and to the realtime channel after
// commit (best-effort).
type pendingEvent struct {
	eventType enums.OutboxEventType
	data      any
}

func (s *service) statusChangedEvent(record *models.GroupOrder, from enums.GroupOrderStatus, reason string) pendingEvent {
	return pendingEvent{
		eventType: enums.EventGroupOrderStateChanged,
		data: payloads.GroupOrderStateChangedEvent{
			GroupOrderID: record.ID,
			From:         from,
			To:           record.Status,
			Reason:       reason,
		},
	}
}

// mutate runs fn against a fresh snapshot inside a transaction and commits it
// through the versioned update. A version conflict retries the whole cycle
// with a bounded budget; exhaustion surfaces UpdateConflict. Domain errors
// from fn abort immediately without writing anything.
func (s *service) mutate(
	ctx context.Context,
	id uuid.UUID,
	actor *outbox.ActorRef,
	fn func(record *models.GroupOrder) ([]pendingEvent, error),
) (*GroupOrderView, error) {
	var committed *models.GroupOrder
	var events []pendingEvent

	backoff := retry.WithMaxRetries(uint64(s.retries-1), retry.NewConstant(conflictBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		committed = nil
		events = nil
		txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			record, err := repo.Find(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "group order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group order")
			}
			snapshotVersion := record.Version

			pending, err := fn(record)
			if err != nil {
				return err
			}
			if pending == nil {
				// Nothing to change; skip the write entirely.
				committed = record
				return nil
			}

			if err := repo.UpdateVersioned(ctx, record, snapshotVersion); err != nil {
				return err
			}
			for _, event := range pending {
				domainEvent := outbox.DomainEvent{
					EventType:     event.eventType,
					AggregateType: enums.AggregateGroupOrder,
					AggregateID:   record.ID,
					Version:       1,
					Actor:         actor,
					Data:          event.data,
				}
				if err := s.outbox.Emit(ctx, tx, domainEvent); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit outbox event")
				}
			}
			committed = record
			events = pending
			return nil
		})
		if errors.Is(txErr, ErrVersionConflict) {
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUpdateConflict, err,
				fmt.Sprintf("group order update conflicted %d times", s.retries))
		}
		return nil, err
	}

	// Realtime fan-out happens only after the state change is durable, and a
	// publish failure never unwinds it.
	s.publishRealtime(ctx, committed.ID, events)

	view := toView(committed)
	return &view, nil
}

func (s *service) publishRealtime(ctx context.Context, groupOrderID uuid.UUID, events []pendingEvent) {
	for _, event := range events {
		notification := notifications.Event{
			Type:       event.eventType,
			OccurredAt: s.now(),
			Data:       event.data,
		}
		if err := s.realtime.Publish(ctx, groupOrderID, notification); err != nil && s.logg != nil {
			logCtx := s.logg.WithGroupOrderID(ctx, groupOrderID.String())
			s.logg.Warn(s.logg.WithField(logCtx, "event_type", event.eventType), "realtime publish failed")
		}
	}
}

// reprice recomputes derived pricing from the bulk-discount schedule at the
// record's current quantity.
func (s *service) reprice(ctx context.Context, record *models.GroupOrder) error {
	schedule, err := s.pricing.ScheduleFor(ctx, record.ProductID, record.BasePriceCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing schedule")
	}
	record.PricePerUnitCents = schedule.UnitPriceAt(record.CurrentQuantity)
	record.EstimatedSavingsCents = schedule.SavingsAt(record.CurrentQuantity)
	return nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil && actor.StoreID == uuid.Nil {
		return nil
	}
	store := actor.StoreID
	return &outbox.ActorRef{
		UserID:  actor.UserID,
		StoreID: &store,
		Role:    actor.Role,
	}
}
