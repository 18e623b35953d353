package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
)

// Resolver loads the bulk-discount schedule for a product.
type Resolver interface {
	ScheduleFor(ctx context.Context, productID uuid.UUID, baseUnitPriceCents int) (Schedule, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a schedule resolver bound to the provided DB.
func NewRepository(db *gorm.DB) Resolver {
	return &repository{db: db}
}

func (r *repository) ScheduleFor(ctx context.Context, productID uuid.UUID, baseUnitPriceCents int) (Schedule, error) {
	var rows []models.ProductVolumeDiscount
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("min_qty ASC").
		Find(&rows).Error
	if err != nil {
		return Schedule{}, err
	}
	tiers := make([]Tier, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, Tier{MinQty: row.MinQty, UnitPriceCents: row.UnitPriceCents})
	}
	return NewSchedule(baseUnitPriceCents, tiers), nil
}
