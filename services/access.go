package services

import (
	"github.com/sidhant-sriv/smart-renter/apperr"
	"github.com/sidhant-sriv/smart-renter/models"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   uint
	Role models.Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// RequireRole fails with an authentication error when there is no caller
// and with an authorization error when the caller's role is not listed.
func RequireRole(p *Principal, roles ...models.Role) error {
	if p == nil {
		return apperr.Authentication("Authentication required")
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Authorization("Access denied for role " + string(p.Role))
}

// RequireOwner checks that the caller owns the resource. Admins pass only
// when adminAllowed is set, which is the case for delete-class actions.
func RequireOwner(p *Principal, ownerID uint, adminAllowed bool, msg string) error {
	if p == nil {
		return apperr.Authentication("Authentication required")
	}
	if p.ID == ownerID {
		return nil
	}
	if adminAllowed && p.IsAdmin() {
		return nil
	}
	return apperr.Authorization(msg)
}
