package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/outbox"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Tx:     testTx{db: db},
		Outbox: outbox.NewService(outbox.NewRepository(db), nil),
	})
	require.NoError(t, err)
	return svc
}

func createTestOrder(t *testing.T, db *gorm.DB, mutators ...func(*models.Order)) *models.Order {
	t.Helper()

	groupOrderID := uuid.New()
	record := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     "VC20260314" + uuid.NewString()[:4],
		OrderType:       enums.OrderTypeGroup,
		GroupOrderID:    &groupOrderID,
		VendorStoreID:   uuid.New(),
		SupplierStoreID: uuid.New(),
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		TotalCents:      5000,
		DiscountCents:   1000,
		FinalCents:      4000,
		Items: []models.OrderLineItem{
			{ID: uuid.New(), Name: "test line", UnitPriceCents: 800, Qty: 5, TotalCents: 4000},
		},
	}
	for _, mutate := range mutators {
		mutate(record)
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestServiceUpdateStatusSupplierDrivesPipeline(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := createTestOrder(t, db)
	supplier := Actor{StoreID: record.SupplierStoreID, Role: "supplier"}

	view, err := svc.UpdateStatus(ctx, record.ID, supplier, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, view.Status)

	stored, err := NewRepository(db).Find(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ConfirmedAt)

	var events []models.OutboxEvent
	require.NoError(t, db.Where("aggregate_id = ?", record.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStateChanged, events[0].EventType)
}

func TestServiceUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := createTestOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusShipped
		shipped := time.Now().UTC()
		o.ShippedAt = &shipped
	})
	supplier := Actor{StoreID: record.SupplierStoreID, Role: "supplier"}

	// A shipped order can no longer be cancelled.
	_, err := svc.UpdateStatus(ctx, record.ID, supplier, enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, record.ID, supplier, enums.OrderStatusPending)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	view, err := svc.UpdateStatus(ctx, record.ID, supplier, enums.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, view.Status)
}

func TestServiceUpdateStatusVendorMayOnlyCancel(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := createTestOrder(t, db)
	vendor := Actor{StoreID: record.VendorStoreID, Role: "vendor"}

	_, err := svc.UpdateStatus(ctx, record.ID, vendor, enums.OrderStatusConfirmed)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	view, err := svc.UpdateStatus(ctx, record.ID, vendor, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, view.Status)
}

func TestServiceUpdateStatusStrangerForbidden(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := createTestOrder(t, db)

	_, err := svc.UpdateStatus(ctx, record.ID, Actor{StoreID: uuid.New()}, enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestServiceGetEnforcesStoreOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	record := createTestOrder(t, db)

	view, err := svc.Get(ctx, record.ID, Actor{StoreID: record.VendorStoreID})
	require.NoError(t, err)
	assert.Equal(t, record.OrderNumber, view.OrderNumber)
	require.Len(t, view.Items, 1)

	_, err = svc.Get(ctx, record.ID, Actor{StoreID: uuid.New()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	byNumber, err := svc.GetByNumber(ctx, record.OrderNumber, Actor{StoreID: record.SupplierStoreID})
	require.NoError(t, err)
	assert.Equal(t, record.ID, byNumber.ID)
}

func TestServiceListFiltersByStore(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	vendor := uuid.New()
	mine := createTestOrder(t, db, func(o *models.Order) { o.VendorStoreID = vendor })
	createTestOrder(t, db)

	list, err := svc.List(ctx, pagination.Params{}, Filters{VendorStoreID: &vendor})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, mine.ID, list.Orders[0].ID)
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    enums.OrderStatus
		to      enums.OrderStatus
		allowed bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusPending, enums.OrderStatusShipped, false},
		{enums.OrderStatusConfirmed, enums.OrderStatusProcessing, true},
		{enums.OrderStatusConfirmed, enums.OrderStatusDelivered, false},
		{enums.OrderStatusProcessing, enums.OrderStatusShipped, true},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusShipped, enums.OrderStatusDelivered, true},
		{enums.OrderStatusShipped, enums.OrderStatusCancelled, false},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
