package grouporders

import (
	"github.com/vendorconnect/vendorconnect-backend/pkg/enums"
	pkgerrors "github.com/vendorconnect/vendorconnect-backend/pkg/errors"
)

// legalTransitions enumerates every edge of the group order state machine.
// active and target_reached toggle on quantity crossing the target; everything
// after ordered is monotonic.
var legalTransitions = map[enums.GroupOrderStatus][]enums.GroupOrderStatus{
	enums.GroupOrderStatusActive: {
		enums.GroupOrderStatusTargetReached,
		enums.GroupOrderStatusCancelled,
	},
	enums.GroupOrderStatusTargetReached: {
		enums.GroupOrderStatusActive,
		enums.GroupOrderStatusOrdered,
		enums.GroupOrderStatusCancelled,
	},
	enums.GroupOrderStatusOrdered: {
		enums.GroupOrderStatusDelivered,
	},
}

func canTransition(from, to enums.GroupOrderStatus) bool {
	for _, candidate := range legalTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func transitionError(from, to enums.GroupOrderStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal group order transition").
		WithDetails(map[string]string{"from": from.String(), "to": to.String()})
}

// statusForQuantity returns the side of the active/target_reached toggle the
// quantity belongs on. Only meaningful before the order is placed.
func statusForQuantity(current, target int) enums.GroupOrderStatus {
	if current >= target {
		return enums.GroupOrderStatusTargetReached
	}
	return enums.GroupOrderStatusActive
}
