package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
)

// ParticipantChangedEvent is emitted when a vendor joins or leaves a group
// order. Quantity is the vendor's total committed quantity after the change
// (zero on leave).
type ParticipantChangedEvent struct {
	GroupOrderID    uuid.UUID              `json:"group_order_id"`
	VendorStoreID   uuid.UUID              `json:"vendor_store_id"`
	Quantity        int                    `json:"quantity"`
	CurrentQuantity int                    `json:"current_quantity"`
	TargetQuantity  int                    `json:"target_quantity"`
	Status          enums.GroupOrderStatus `json:"status"`
}

// GroupOrderStateChangedEvent reports a status edge on a group order.
type GroupOrderStateChangedEvent struct {
	GroupOrderID uuid.UUID              `json:"group_order_id"`
	From         enums.GroupOrderStatus `json:"from"`
	To           enums.GroupOrderStatus `json:"to"`
	Reason       string                 `json:"reason,omitempty"`
}

// OrderPlacedEvent is emitted per order materialized from a group order.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	GroupOrderID  uuid.UUID `json:"group_order_id"`
	VendorStoreID uuid.UUID `json:"vendor_store_id"`
	FinalCents    int       `json:"final_cents"`
}

// GroupOrderExpiredEvent reports an automatic cancellation after the deadline.
type GroupOrderExpiredEvent struct {
	GroupOrderID    uuid.UUID `json:"group_order_id"`
	CurrentQuantity int       `json:"current_quantity"`
	TargetQuantity  int       `json:"target_quantity"`
	ExpiredAt       time.Time `json:"expired_at"`
}

// OrderStateChangedEvent reports a status edge on an individual order.
type OrderStateChangedEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	VendorStoreID uuid.UUID         `json:"vendor_store_id"`
	From          enums.OrderStatus `json:"from"`
	To            enums.OrderStatus `json:"to"`
}
