package booking

import (
	"strings"

	"github.com/google/uuid"
)

// ActorRole is the relationship of an actor to one specific booking.
type ActorRole string

const (
	RoleCustomer     ActorRole = "CUSTOMER"
	RoleProvider     ActorRole = "PROVIDER"
	RoleAdmin        ActorRole = "ADMIN"
	RoleUnauthorized ActorRole = "UNAUTHORIZED"
)

// Actor is the identity performing a request. IsAdmin comes from verified
// token claims, never from the request body.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// RoleSet is the set of roles an actor holds on a booking. An administrator
// can also be the customer or provider of the same booking.
type RoleSet uint8

const (
	roleBitCustomer RoleSet = 1 << iota
	roleBitProvider
	roleBitAdmin
)

func rolesOf(roles ...ActorRole) RoleSet {
	var s RoleSet
	for _, r := range roles {
		switch r {
		case RoleCustomer:
			s |= roleBitCustomer
		case RoleProvider:
			s |= roleBitProvider
		case RoleAdmin:
			s |= roleBitAdmin
		}
	}
	return s
}

// Has reports whether the set contains role.
func (s RoleSet) Has(role ActorRole) bool {
	bit := rolesOf(role)
	return bit != 0 && s&bit != 0
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	return s&other != 0
}

// IsParty reports whether the set contains customer or provider.
func (s RoleSet) IsParty() bool {
	return s&(roleBitCustomer|roleBitProvider) != 0
}

// IsEmpty reports whether the actor holds no role at all.
func (s RoleSet) IsEmpty() bool {
	return s == 0
}

// Roles lists the roles in the set, or [RoleUnauthorized] when empty.
func (s RoleSet) Roles() []ActorRole {
	if s.IsEmpty() {
		return []ActorRole{RoleUnauthorized}
	}
	var out []ActorRole
	for _, r := range []ActorRole{RoleCustomer, RoleProvider, RoleAdmin} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// String renders the set as a comma separated list.
func (s RoleSet) String() string {
	roles := s.Roles()
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

// ResolveRoles is the one place an actor's relationship to a booking is
// derived. Handlers and services must not compare IDs themselves.
func ResolveRoles(b *Booking, actor Actor) RoleSet {
	var s RoleSet
	if actor.ID != uuid.Nil {
		if actor.ID == b.customerID {
			s |= roleBitCustomer
		}
		if actor.ID == b.providerID {
			s |= roleBitProvider
		}
	}
	if actor.IsAdmin {
		s |= roleBitAdmin
	}
	return s
}
