package grouporders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

// ErrVersionConflict reports that a conditional update lost the race against
// a concurrent writer. The caller retries against a fresh snapshot.
var ErrVersionConflict = errors.New("group order version conflict")

// Repository is the persistence contract for group orders. All mutation goes
// through UpdateVersioned; writing fields directly is not part of the contract.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.GroupOrder) (*models.GroupOrder, error)
	Find(ctx context.Context, id uuid.UUID) (*models.GroupOrder, error)
	List(ctx context.Context, params pagination.Params, filters Filters) ([]models.GroupOrder, *string, error)
	UpdateVersioned(ctx context.Context, record *models.GroupOrder, snapshotVersion int64) error
	FindOverdueActive(ctx context.Context, cutoff time.Time) ([]models.GroupOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a group order repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.GroupOrder) (*models.GroupOrder, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.GroupOrder, error) {
	var record models.GroupOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) ([]models.GroupOrder, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.GroupOrder{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ProductID != nil {
		query = query.Where("product_id = ?", *filters.ProductID)
	}
	if filters.CreatorStoreID != nil {
		query = query.Where("creator_store_id = ?", *filters.CreatorStoreID)
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

	var rows []models.GroupOrder
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

// UpdateVersioned commits the mutated record only if no other writer advanced
// the row since the snapshot was read. Zero rows affected means the version
// predicate failed and the caller must retry with a fresh snapshot.
func (r *repository) UpdateVersioned(ctx context.Context, record *models.GroupOrder, snapshotVersion int64) error {
	record.Version = snapshotVersion + 1
	res := r.db.WithContext(ctx).
		Model(&models.GroupOrder{}).
		Where("id = ? AND version = ?", record.ID, snapshotVersion).
		Select(
			"current_quantity",
			"participants",
			"status",
			"price_per_unit_cents",
			"estimated_savings_cents",
			"version",
			"ordered_at",
			"delivered_at",
			"cancelled_at",
			"updated_at",
		).
		Updates(record)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) FindOverdueActive(ctx context.Context, cutoff time.Time) ([]models.GroupOrder, error) {
	var rows []models.GroupOrder
	err := r.db.WithContext(ctx).
		Where("status = ?", "active").
		Where("deadline < ?", cutoff).
		Order("deadline ASC").
		Find(&rows).Error
	return rows, err
}
