package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

// ErrStatusConflict reports that a conditional status update found the row in
// a different state than the caller observed.
var ErrStatusConflict = errors.New("order status conflict")

// Repository is the persistence contract for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.Order) (*models.Order, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByGroupOrderAndVendor(ctx context.Context, groupOrderID, vendorStoreID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters Filters) ([]models.Order, *string, error)
	UpdateStatusConditional(ctx context.Context, record *models.Order, from models.Order) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByGroupOrderAndVendor(ctx context.Context, groupOrderID, vendorStoreID uuid.UUID) (*models.Order, error) {
	var record models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("group_order_id = ? AND vendor_store_id = ?", groupOrderID, vendorStoreID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) ([]models.Order, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items")
	if filters.VendorStoreID != nil {
		query = query.Where("vendor_store_id = ?", *filters.VendorStoreID)
	}
	if filters.SupplierStoreID != nil {
		query = query.Where("supplier_store_id = ?", *filters.SupplierStoreID)
	}
	if filters.GroupOrderID != nil {
		query = query.Where("group_order_id = ?", *filters.GroupOrderID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &encoded
	}
	return rows, next, nil
}

// UpdateStatusConditional commits the lifecycle fields only if the row still
// holds the status the caller observed. Zero rows affected means a concurrent
// transition won and the caller re-evaluates against a fresh snapshot.
func (r *repository) UpdateStatusConditional(ctx context.Context, record *models.Order, from models.Order) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", record.ID, from.Status).
		Select(
			"status",
			"payment_status",
			"confirmed_at",
			"shipped_at",
			"delivered_at",
			"cancelled_at",
			"updated_at",
		).
		Updates(record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}
