// Package session resolves and authorizes the caller of every operation.
package session

import (
	"fmt"

	"go_library/internal/apperr"
	"go_library/internal/model"
)

// Principal is the authenticated caller. It is passed explicitly to every service call.
type Principal struct {
	ID       int        `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// IsStaff reports whether the caller holds a staff or admin role
func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}

// Can reports whether the caller holds one of roles
func (p Principal) Can(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// Require fails with Forbidden unless the caller holds one of roles
func Require(actor Principal, roles ...model.Role) error {
	if actor.ID == 0 {
		return apperr.Unauthorized("not logged in")
	}
	if !actor.Can(roles...) {
		return apperr.Forbidden(fmt.Sprintf("role %q may not perform this operation", actor.Role))
	}
	return nil
}

// RequireSelfOrStaff lets users act on their own records and staff act on anyone's
func RequireSelfOrStaff(actor Principal, userID int) error {
	if actor.ID == 0 {
		return apperr.Unauthorized("not logged in")
	}
	if actor.IsStaff() || actor.ID == userID {
		return nil
	}
	return apperr.Forbidden("cannot access another user's records")
}

// Staff is the role set allowed to run counter operations
var Staff = []model.Role{model.RoleStaff, model.RoleAdmin}
