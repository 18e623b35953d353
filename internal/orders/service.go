package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox/payloads"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

// Service exposes order reads and the fulfillment status machine.
type Service interface {
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*OrderView, error)
	GetByNumber(ctx context.Context, orderNumber string, actor Actor) (*OrderView, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, actor Actor, to enums.OrderStatus) (*OrderView, error)
}

// ServiceParams wire the order service's collaborators.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Now    func() time.Time
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		outbox: params.Outbox,
		now:    now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*OrderView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	record, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeRead(record.VendorStoreID, record.SupplierStoreID, actor); err != nil {
		return nil, err
	}
	view := toView(record)
	return &view, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string, actor Actor) (*OrderView, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	record, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := authorizeRead(record.VendorStoreID, record.SupplierStoreID, actor); err != nil {
		return nil, err
	}
	view := toView(record)
	return &view, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*OrderList, error) {
	rows, next, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(rows))
	for i := range rows {
		views = append(views, toView(&rows[i]))
	}
	return &OrderList{Orders: views, NextCursor: next}, nil
}

// UpdateStatus advances the fulfillment pipeline. The supplier drives every
// edge except cancellation, which the vendor may also request before shipping.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, actor Actor, to enums.OrderStatus) (*OrderView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := authorizeStatusChange(record, actor, to); err != nil {
			return err
		}
		from := *record
		if !canTransition(record.Status, to) {
			return transitionError(record.Status, to)
		}
		record.Status = to
		s.stampTransition(record, to)
		if err := repo.UpdateStatusConditional(ctx, record, from); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return pkgerrors.Wrap(pkgerrors.CodeUpdateConflict, err, "order changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   record.ID,
			Version:       1,
			Actor:         actorRef(actor),
			Data: payloads.OrderStateChangedEvent{
				OrderID:       record.ID,
				OrderNumber:   record.OrderNumber,
				VendorStoreID: record.VendorStoreID,
				From:          from.Status,
				To:            to,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit outbox event")
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := toView(updated)
	return &view, nil
}

func (s *service) stampTransition(record *models.Order, to enums.OrderStatus) {
	now := s.now()
	switch to {
	case enums.OrderStatusConfirmed:
		record.ConfirmedAt = &now
	case enums.OrderStatusShipped:
		record.ShippedAt = &now
	case enums.OrderStatusDelivered:
		record.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		record.CancelledAt = &now
	}
}

func authorizeRead(vendorStoreID, supplierStoreID uuid.UUID, actor Actor) error {
	if actor.StoreID == vendorStoreID || actor.StoreID == supplierStoreID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another store")
}

func authorizeStatusChange(record *models.Order, actor Actor, to enums.OrderStatus) error {
	if actor.StoreID == record.SupplierStoreID {
		return nil
	}
	if actor.StoreID == record.VendorStoreID && to == enums.OrderStatusCancelled {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to change this order")
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
