package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	"github.com/vendorconnect/vendorconnect-backend/pkg/types"
)

// GroupOrder aggregates demand from multiple vendors against a target
// quantity. CurrentQuantity is derived and must equal the sum of participant
// quantities at every committed version. Version backs the optimistic
// concurrency check in the repository; no writer updates the row without it.
type GroupOrder struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID             uuid.UUID              `gorm:"column:product_id;type:uuid;not null"`
	CreatorStoreID        uuid.UUID              `gorm:"column:creator_store_id;type:uuid;not null"`
	TargetQuantity        int                    `gorm:"column:target_quantity;not null"`
	CurrentQuantity       int                    `gorm:"column:current_quantity;not null;default:0"`
	MaxParticipants       int                    `gorm:"column:max_participants;not null"`
	Participants          types.Participants     `gorm:"column:participants;type:jsonb;serializer:json"`
	Status                enums.GroupOrderStatus `gorm:"column:status;type:group_order_status;not null;default:'active'"`
	Deadline              time.Time              `gorm:"column:deadline;not null"`
	BasePriceCents        int                    `gorm:"column:base_price_cents;not null"`
	PricePerUnitCents     int                    `gorm:"column:price_per_unit_cents;not null"`
	EstimatedSavingsCents int                    `gorm:"column:estimated_savings_cents;not null;default:0"`
	Version               int64                  `gorm:"column:version;not null;default:1"`
	OrderedAt             *time.Time             `gorm:"column:ordered_at"`
	DeliveredAt           *time.Time             `gorm:"column:delivered_at"`
	CancelledAt           *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
