package orders

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

// LineItemView is the API projection of one order line.
type LineItemView struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	UnitPriceCents int        `json:"unit_price_cents"`
	Qty            int        `json:"qty"`
	TotalCents     int        `json:"total_cents"`
}

// OrderView is the API projection of an order.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	OrderType       enums.OrderType     `json:"order_type"`
	GroupOrderID    *uuid.UUID          `json:"group_order_id,omitempty"`
	VendorStoreID   uuid.UUID           `json:"vendor_store_id"`
	SupplierStoreID uuid.UUID           `json:"supplier_store_id"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	TotalCents      int                 `json:"total_cents"`
	DiscountCents   int                 `json:"discount_cents"`
	FinalCents      int                 `json:"final_cents"`
	Items           []LineItemView      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

// Filters narrow order list queries.
type Filters struct {
	VendorStoreID   *uuid.UUID
	SupplierStoreID *uuid.UUID
	GroupOrderID    *uuid.UUID
	Status          *enums.OrderStatus
}

// MaterializeResult reports the outcome of turning a placed group order into
// per-vendor orders. Skipped counts vendors whose order already existed.
type MaterializeResult struct {
	GroupOrderID uuid.UUID   `json:"group_order_id"`
	Created      []OrderView `json:"created"`
	Skipped      int         `json:"skipped"`
	Failed       int         `json:"failed"`
}

func toView(record *models.Order) OrderView {
	items := make([]LineItemView, 0, len(record.Items))
	for i := range record.Items {
		item := record.Items[i]
		items = append(items, LineItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	return OrderView{
		ID:              record.ID,
		OrderNumber:     record.OrderNumber,
		OrderType:       record.OrderType,
		GroupOrderID:    record.GroupOrderID,
		VendorStoreID:   record.VendorStoreID,
		SupplierStoreID: record.SupplierStoreID,
		Status:          record.Status,
		PaymentStatus:   record.PaymentStatus,
		TotalCents:      record.TotalCents,
		DiscountCents:   record.DiscountCents,
		FinalCents:      record.FinalCents,
		Items:           items,
		CreatedAt:       record.CreatedAt,
	}
}
