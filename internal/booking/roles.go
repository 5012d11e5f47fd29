package booking

import (
	"github.com/google/uuid"

	"room-booking-backend/internal/model"
)

// Actor is the caller identity as resolved by the identity collaborator.
// Authorization here only consults the flags and the role tag, never the
// actor's concrete representation.
type Actor struct {
	ID            uuid.UUID
	Name          string
	Authenticated bool
	Superuser     bool
	Role          string
}

// Role tags recognized by the capability maps.
const (
	RoleAdmin     = "admin"
	RoleFrontDesk = "front_desk"
	RoleLabTech   = "lab_tech"
	RoleConcierge = "concierge"
	RoleJanitor   = "janitor"
)

// categoryManagers maps a space category to the roles allowed to approve,
// reject or delete its reservations. Admin is always allowed.
var categoryManagers = map[model.SpaceCategory][]string{
	model.SpaceClassroom: {RoleFrontDesk, RoleAdmin},
	model.SpaceLab:       {RoleLabTech, RoleAdmin},
	model.SpaceHall:      {RoleAdmin},
}

// doorkeepers are the roles allowed to register openings, attendance and
// closures.
var doorkeepers = []string{RoleConcierge, RoleJanitor, RoleAdmin}

// ResolveRole returns the actor's effective role tag. Superusers act as
// admin everywhere.
func ResolveRole(a Actor) (string, bool) {
	if !a.Authenticated {
		return "", false
	}
	if a.Superuser {
		return RoleAdmin, true
	}
	if a.Role == "" {
		return "", false
	}
	return a.Role, true
}

// CanManage reports whether the actor may approve or reject reservations for
// a space of the given category.
func CanManage(a Actor, category model.SpaceCategory) bool {
	role, ok := ResolveRole(a)
	if !ok {
		return false
	}
	allowed, ok := categoryManagers[category]
	if !ok {
		allowed = []string{RoleAdmin}
	}
	return contains(allowed, role)
}

// CanOpen reports whether the actor may drive the opening lifecycle.
func CanOpen(a Actor) bool {
	role, ok := ResolveRole(a)
	return ok && contains(doorkeepers, role)
}

// ActorRef returns the actor's id for audit fields, nil for system or
// unauthenticated actors.
func ActorRef(a Actor) *uuid.UUID {
	if !a.Authenticated || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func contains(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
