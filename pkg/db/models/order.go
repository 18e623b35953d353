package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
)

// Order is one vendor's purchase order. OrderNumber is globally unique
// (VC<YYYYMMDD><seq4>) and assigned exactly once at creation; the unique
// index doubles as the collision detector for the sequence allocator.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;uniqueIndex:ux_orders_order_number;not null"`
	OrderType       enums.OrderType     `gorm:"column:order_type;type:order_type;not null;default:'direct'"`
	GroupOrderID    *uuid.UUID          `gorm:"column:group_order_id;type:uuid;uniqueIndex:ux_orders_group_order_vendor"`
	VendorStoreID   uuid.UUID           `gorm:"column:vendor_store_id;type:uuid;not null;uniqueIndex:ux_orders_group_order_vendor"`
	SupplierStoreID uuid.UUID           `gorm:"column:supplier_store_id;type:uuid;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	DiscountCents   int                 `gorm:"column:discount_cents;not null;default:0"`
	FinalCents      int                 `gorm:"column:final_cents;not null"`
	Items           []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
