package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/internal/grouporders"
	"github.com/vendorconnect/vendorconnect-backend/internal/sequence"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db"
	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox/payloads"
)

const defaultSequenceRetries = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Factory materializes a placed group order into one purchase order per
// participating vendor. Each vendor's order is committed independently so one
// failure never unwinds the others; re-invoking fills in only what is missing.
type Factory struct {
	orders      Repository
	groupOrders grouporders.Repository
	tx          txRunner
	outbox      outboxPublisher
	logg        *logger.Logger
	seqRetries  int
	now         func() time.Time
}

// FactoryParams wire the factory's collaborators.
type FactoryParams struct {
	Orders          Repository
	GroupOrders     grouporders.Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Logger          *logger.Logger
	SequenceRetries int
	Now             func() time.Time
}

// NewFactory builds an order factory with the required dependencies.
func NewFactory(params FactoryParams) (*Factory, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.GroupOrders == nil {
		return nil, fmt.Errorf("group order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	retries := params.SequenceRetries
	if retries <= 0 {
		retries = defaultSequenceRetries
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Factory{
		orders:      params.Orders,
		groupOrders: params.GroupOrders,
		tx:          params.Tx,
		outbox:      params.Outbox,
		logg:        params.Logger,
		seqRetries:  retries,
		now:         now,
	}, nil
}

// Materialize creates the per-vendor orders for a placed group order. Vendors
// that already have an order are skipped, which makes the call safe to retry
// after a partial failure. The returned error aggregates per-vendor failures;
// a non-nil error still comes with a result describing what did succeed.
func (f *Factory) Materialize(ctx context.Context, groupOrderID uuid.UUID) (*MaterializeResult, error) {
	if groupOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id required")
	}
	groupOrder, err := f.groupOrders.Find(ctx, groupOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load group order")
	}
	if groupOrder.Status != enums.GroupOrderStatusOrdered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "group order has not been placed").
			WithDetails(map[string]string{"status": groupOrder.Status.String()})
	}

	// Order numbers key off the day the group order was placed, not the day a
	// retry happens to run.
	orderedAt := f.now()
	if groupOrder.OrderedAt != nil {
		orderedAt = *groupOrder.OrderedAt
	}
	dateKey := sequence.DateKey(orderedAt)

	vendorIDs := make([]uuid.UUID, 0, len(groupOrder.Participants))
	for vendorID := range groupOrder.Participants {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Slice(vendorIDs, func(i, j int) bool {
		return vendorIDs[i].String() < vendorIDs[j].String()
	})

	result := &MaterializeResult{GroupOrderID: groupOrderID}
	var failures error
	for _, vendorID := range vendorIDs {
		qty := groupOrder.Participants.Quantity(vendorID)
		created, skipped, err := f.materializeVendor(ctx, groupOrder, vendorID, qty, dateKey)
		switch {
		case err != nil:
			result.Failed++
			failures = multierr.Append(failures, fmt.Errorf("vendor %s: %w", vendorID, err))
			if f.logg != nil {
				logCtx := f.logg.WithGroupOrderID(ctx, groupOrderID.String())
				f.logg.Error(f.logg.WithVendorID(logCtx, vendorID.String()), "order materialization failed", err)
			}
		case skipped:
			result.Skipped++
		default:
			result.Created = append(result.Created, toView(created))
		}
	}
	return result, failures
}

// materializeVendor creates one vendor's order. The sequence allocation
// commits in its own transaction before the insert: if the insert then hits a
// number already held by an order the counter never saw, the retry draws the
// next value instead of redrawing the collided one. An insert failure leaves
// a gap in the sequence, which is acceptable.
func (f *Factory) materializeVendor(
	ctx context.Context,
	groupOrder *models.GroupOrder,
	vendorID uuid.UUID,
	qty int,
	dateKey string,
) (*models.Order, bool, error) {
	if _, err := f.orders.FindByGroupOrderAndVendor(ctx, groupOrder.ID, vendorID); err == nil {
		return nil, true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing order")
	}

	var created *models.Order
	for attempt := 0; attempt < f.seqRetries; attempt++ {
		var seq int64
		if err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var txErr error
			seq, txErr = sequence.AllocateTx(ctx, tx, dateKey)
			return txErr
		}); err != nil {
			return nil, false, err
		}

		err := f.tx.WithTx(ctx, func(tx *gorm.DB) error {
			record := f.buildOrder(groupOrder, vendorID, qty, sequence.OrderNumber(dateKey, seq))
			if _, err := f.orders.WithTx(tx).Create(ctx, record); err != nil {
				return err
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPlaced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   record.ID,
				Version:       1,
				Data: payloads.OrderPlacedEvent{
					OrderID:       record.ID,
					OrderNumber:   record.OrderNumber,
					GroupOrderID:  groupOrder.ID,
					VendorStoreID: vendorID,
					FinalCents:    record.FinalCents,
				},
			}
			if err := f.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			created = record
			return nil
		})
		if err == nil {
			return created, false, nil
		}
		if db.IsUniqueViolation(err, "") {
			// Either the order number collided or a concurrent materialization
			// beat us to this vendor. The existence check disambiguates.
			if _, findErr := f.orders.FindByGroupOrderAndVendor(ctx, groupOrder.ID, vendorID); findErr == nil {
				return nil, true, nil
			}
			continue
		}
		return nil, false, err
	}
	return nil, false, pkgerrors.New(pkgerrors.CodeAllocationExhausted,
		fmt.Sprintf("order number allocation failed after %d attempts", f.seqRetries))
}

func (f *Factory) buildOrder(groupOrder *models.GroupOrder, vendorID uuid.UUID, qty int, orderNumber string) *models.Order {
	unitPrice := groupOrder.PricePerUnitCents
	total := groupOrder.BasePriceCents * qty
	final := unitPrice * qty
	productID := groupOrder.ProductID
	return &models.Order{
		OrderNumber:     orderNumber,
		OrderType:       enums.OrderTypeGroup,
		GroupOrderID:    &groupOrder.ID,
		VendorStoreID:   vendorID,
		SupplierStoreID: groupOrder.CreatorStoreID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		TotalCents:      total,
		DiscountCents:   total - final,
		FinalCents:      final,
		Items: []models.OrderLineItem{
			{
				ProductID:      &productID,
				Name:           fmt.Sprintf("Group buy allocation (%s)", orderNumber),
				UnitPriceCents: unitPrice,
				Qty:            qty,
				TotalCents:     final,
			},
		},
	}
}
