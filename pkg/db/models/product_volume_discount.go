package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVolumeDiscount captures one tier of a product's bulk pricing
// schedule: at or above MinQty the unit price drops to UnitPriceCents.
type ProductVolumeDiscount struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	MinQty         int       `gorm:"column:min_qty;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
