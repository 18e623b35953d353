package grouporders

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/pkg/db/models"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
)

// Actor identifies the authenticated caller of a mutating operation.
type Actor struct {
	UserID  uuid.UUID
	StoreID uuid.UUID
	Role    string
}

// CreateInput carries the fields a supplier provides when opening a group order.
type CreateInput struct {
	ProductID          uuid.UUID
	CreatorStoreID     uuid.UUID
	TargetQuantity     int
	MaxParticipants    int
	BaseUnitPriceCents int
	Deadline           time.Time
}

// JoinInput carries one vendor's join request.
type JoinInput struct {
	GroupOrderID uuid.UUID
	VendorID     uuid.UUID
	Quantity     int
	Actor        Actor
}

// LeaveInput carries one vendor's leave request. Leaving always withdraws the
// vendor's full committed quantity.
type LeaveInput struct {
	GroupOrderID uuid.UUID
	VendorID     uuid.UUID
	Actor        Actor
}

// ParticipantView is one row of the participant breakdown.
type ParticipantView struct {
	VendorStoreID uuid.UUID `json:"vendor_store_id"`
	Quantity      int       `json:"quantity"`
}

// GroupOrderView is the API projection of a group order.
type GroupOrderView struct {
	ID                    uuid.UUID              `json:"id"`
	ProductID             uuid.UUID              `json:"product_id"`
	CreatorStoreID        uuid.UUID              `json:"creator_store_id"`
	TargetQuantity        int                    `json:"target_quantity"`
	CurrentQuantity       int                    `json:"current_quantity"`
	MaxParticipants       int                    `json:"max_participants"`
	ParticipantCount      int                    `json:"participant_count"`
	Participants          []ParticipantView      `json:"participants"`
	Status                enums.GroupOrderStatus `json:"status"`
	Deadline              time.Time              `json:"deadline"`
	BasePriceCents        int                    `json:"base_price_cents"`
	PricePerUnitCents     int                    `json:"price_per_unit_cents"`
	EstimatedSavingsCents int                    `json:"estimated_savings_cents"`
	CreatedAt             time.Time              `json:"created_at"`
}

// GroupOrderList is a cursor page of group orders.
type GroupOrderList struct {
	GroupOrders []GroupOrderView `json:"group_orders"`
	NextCursor  *string          `json:"next_cursor,omitempty"`
}

// Filters narrow group order list queries.
type Filters struct {
	Status         *enums.GroupOrderStatus
	ProductID      *uuid.UUID
	CreatorStoreID *uuid.UUID
}

func toView(record *models.GroupOrder) GroupOrderView {
	participants := make([]ParticipantView, 0, len(record.Participants))
	for vendorID, qty := range record.Participants {
		participants = append(participants, ParticipantView{VendorStoreID: vendorID, Quantity: qty})
	}
	return GroupOrderView{
		ID:                    record.ID,
		ProductID:             record.ProductID,
		CreatorStoreID:        record.CreatorStoreID,
		TargetQuantity:        record.TargetQuantity,
		CurrentQuantity:       record.CurrentQuantity,
		MaxParticipants:       record.MaxParticipants,
		ParticipantCount:      len(record.Participants),
		Participants:          participants,
		Status:                record.Status,
		Deadline:              record.Deadline,
		BasePriceCents:        record.BasePriceCents,
		PricePerUnitCents:     record.PricePerUnitCents,
		EstimatedSavingsCents: record.EstimatedSavingsCents,
		CreatedAt:             record.CreatedAt,
	}
}
