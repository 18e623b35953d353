package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendorconnect/vendorconnect-backend/api/middleware"
	"github.com/vendorconnect/vendorconnect-backend/api/responses"
	"github.com/vendorconnect/vendorconnect-backend/api/validators"
	internalorders "github.com/vendorconnect/vendorconnect-backend/internal/orders"
	"github.com/vendorconnect/vendorconnect-backend/pkg/auth"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	storeRaw := middleware.StoreIDFromContext(r.Context())
	if storeRaw == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	storeID, err := uuid.Parse(storeRaw)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid store context")
	}
	actor := internalorders.Actor{
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

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

// List returns the caller's orders: vendor stores see orders they placed,
// supplier stores see orders they fulfill.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters internalorders.Filters
		switch auth.Role(actor.Role) {
		case auth.RoleSupplier:
			filters.SupplierStoreID = &actor.StoreID
		default:
			filters.VendorStoreID = &actor.StoreID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if groupOrderID, err := validators.ParseQueryUUID(r, "group_order_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if groupOrderID != nil {
			filters.GroupOrderID = groupOrderID
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Get returns one order by id.
func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// GetByNumber returns one order by its order number.
func GetByNumber(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		view, err := svc.GetByNumber(r.Context(), orderNumber, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// UpdateStatus advances an order along the fulfillment pipeline.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		view, err := svc.UpdateStatus(r.Context(), id, actor, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
