package booking

import (
	"fmt"

	"github.com/campusmarket/service-booking/pkg/domain"
)

// transitionTable is the authorization matrix for status changes: for each
// edge, the roles allowed to take it. Terminal statuses have no edges; only
// the admin override leaves them.
var transitionTable = map[BookingStatus]map[BookingStatus]RoleSet{
	StatusPending: {
		StatusConfirmed:  rolesOf(RoleProvider, RoleAdmin),
		StatusInProgress: rolesOf(RoleProvider, RoleAdmin),
		StatusCompleted:  rolesOf(RoleProvider, RoleAdmin),
		StatusCancelled:  rolesOf(RoleCustomer, RoleAdmin),
	},
	StatusConfirmed: {
		StatusInProgress: rolesOf(RoleProvider, RoleAdmin),
		StatusCompleted:  rolesOf(RoleProvider, RoleAdmin),
		StatusCancelled:  rolesOf(RoleCustomer, RoleProvider, RoleAdmin),
	},
	StatusInProgress: {
		StatusCompleted: rolesOf(RoleProvider, RoleAdmin),
		StatusCancelled: rolesOf(RoleProvider, RoleAdmin),
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// AllowedRoles returns the roles permitted to move a booking from one status
// to another, and false when the edge does not exist.
func AllowedRoles(from, to BookingStatus) (RoleSet, bool) {
	edges, ok := transitionTable[from]
	if !ok {
		return 0, false
	}
	roles, ok := edges[to]
	return roles, ok
}

// CanTransition reports whether an actor holding roles may move a booking
// from one status to another through the ordinary table.
func CanTransition(from, to BookingStatus, roles RoleSet) bool {
	allowed, ok := AllowedRoles(from, to)
	return ok && allowed.Intersects(roles)
}

// authorizeStatusChange checks a status change request. It returns
// override=true when an administrator moves a terminal booking.
func authorizeStatusChange(from, to BookingStatus, roles RoleSet) (override bool, err error) {
	if !to.IsValid() {
		return false, domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", to))
	}
	if from == to {
		return false, domain.NewInvalidOperationError(fmt.Sprintf("booking is already %s", from))
	}
	if from.IsTerminal() {
		if roles.Has(RoleAdmin) {
			return true, nil
		}
		return false, domain.NewInvalidOperationError("cannot update a completed or cancelled booking")
	}

	allowed, ok := AllowedRoles(from, to)
	if !ok {
		return false, domain.NewInvalidOperationError(
			fmt.Sprintf("cannot change booking status from %s to %s", from, to))
	}
	if !allowed.Intersects(roles) {
		return false, domain.NewForbiddenError(permittedPartyMessage(allowed))
	}
	return false, nil
}

// permittedPartyMessage tells the caller who may take an edge. Admin is
// implied on every edge and left out of the message.
func permittedPartyMessage(allowed RoleSet) string {
	switch {
	case allowed.Has(RoleCustomer) && allowed.Has(RoleProvider):
		return "only the customer or the service provider can perform this action"
	case allowed.Has(RoleProvider):
		return "only the service provider can perform this action"
	case allowed.Has(RoleCustomer):
		return "only the customer can perform this action"
	default:
		return "only an administrator can perform this action"
	}
}
