package grouporders

import (
	"net/http"
	"strings"

	"github.com/vendorconnect/vendorconnect-backend/api/responses"
	"github.com/vendorconnect/vendorconnect-backend/api/validators"
	internalgrouporders "github.com/vendorconnect/vendorconnect-backend/internal/grouporders"
	internalorders "github.com/vendorconnect/vendorconnect-backend/internal/orders"
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
	"github.com/vendorconnect/vendorconnect-backend/pkg/logger"
	"github.com/vendorconnect/vendorconnect-backend/pkg/pagination"
)

// Create opens a new group order for the caller's store.
func Create(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), internalgrouporders.CreateInput{
			ProductID:          body.ProductID,
			CreatorStoreID:     actor.StoreID,
			TargetQuantity:     body.TargetQuantity,
			MaxParticipants:    body.MaxParticipants,
			BaseUnitPriceCents: body.BaseUnitPriceCents,
			Deadline:           body.Deadline,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// Get returns one group order with its participant breakdown.
func Get(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// List returns a cursor page of group orders.
func List(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters internalgrouporders.Filters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseGroupOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if productID, err := validators.ParseQueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if productID != nil {
			filters.ProductID = productID
		}
		if creatorID, err := validators.ParseQueryUUID(r, "creator_store_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if creatorID != nil {
			filters.CreatorStoreID = creatorID
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Join adds the caller's store to the group order, or tops up its quantity.
func Join(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body joinRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Join(r.Context(), internalgrouporders.JoinInput{
			GroupOrderID: id,
			VendorID:     actor.StoreID,
			Quantity:     body.Quantity,
			Actor:        actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Leave withdraws the caller's store and its full quantity.
func Leave(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Leave(r.Context(), internalgrouporders.LeaveInput{
			GroupOrderID: id,
			VendorID:     actor.StoreID,
			Actor:        actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Place locks the group order for fulfillment and materializes the per-vendor
// orders. Materialization failures surface in the response without undoing
// the placement; the materialize endpoint picks up the leftovers.
func Place(svc internalgrouporders.Service, factory *internalorders.Factory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Place(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := factory.Materialize(r.Context(), id)
		if err != nil && result == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logCtx := logg.WithGroupOrderID(r.Context(), id.String())
			logg.Error(logCtx, "partial order materialization", err)
		}

		responses.WriteSuccess(w, map[string]any{
			"group_order": view,
			"orders":      result,
		})
	}
}

// Materialize retries order creation for vendors that failed during Place.
func Materialize(factory *internalorders.Factory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := actorFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := factory.Materialize(r.Context(), id)
		if err != nil && result == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logCtx := logg.WithGroupOrderID(r.Context(), id.String())
			logg.Error(logCtx, "partial order materialization", err)
		}
		responses.WriteSuccess(w, result)
	}
}

// Cancel cancels an unplaced group order.
func Cancel(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Cancel(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Deliver marks a placed group order delivered.
func Deliver(svc internalgrouporders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseGroupOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.MarkDelivered(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
