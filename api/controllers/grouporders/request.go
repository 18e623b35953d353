package grouporders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/api/middleware"
	internalgrouporders "github.com/vendorconnect/vendorconnect-backend/internal/grouporders"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
)

// createRequest is the JSON body for opening a group order.
type createRequest struct {
	ProductID          uuid.UUID `json:"product_id" validate:"required"`
	TargetQuantity     int       `json:"target_quantity" validate:"required,min=1"`
	MaxParticipants    int       `json:"max_participants" validate:"required,min=1"`
	BaseUnitPriceCents int       `json:"base_unit_price_cents" validate:"required,min=1"`
	Deadline           time.Time `json:"deadline" validate:"required"`
}

// joinRequest is the JSON body for joining a group order.
type joinRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func actorFromRequest(r *http.Request) (internalgrouporders.Actor, error) {
	storeRaw := middleware.StoreIDFromContext(r.Context())
	if storeRaw == "" {
		return internalgrouporders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	storeID, err := uuid.Parse(storeRaw)
	if err != nil {
		return internalgrouporders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid store context")
	}
	actor := internalgrouporders.Actor{
		StoreID: storeID,
		Role:    middleware.RoleFromContext(r.Context()),
	}
	if userRaw := middleware.UserIDFromContext(r.Context()); userRaw != "" {
		if userID, err := uuid.Parse(userRaw); err == nil {
			actor.UserID = userID
		}
	}
	return actor, nil
}

func parseGroupOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "groupOrderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "group order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group order id")
	}
	return id, nil
}
