package auth

import (
	"github.com/civicdesk/api/internal/model"
)

// Principal is the authenticated caller of a single request. It is built by
// the bearer middleware and passed explicitly to every service call.
type Principal struct {
	UserID int64
	Email  string
	Name   string
	Role   model.Role
}

// PrincipalFromClaims validates the role claim and builds a Principal.
func PrincipalFromClaims(c *Claims) (Principal, error) {
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: c.UserID, Email: c.Email, Name: c.Name, Role: role}, nil
}

func (p Principal) IsCitizen() bool { return p.Role == model.RoleCitizen }
func (p Principal) IsOfficer() bool { return p.Role == model.RoleOfficer }
func (p Principal) IsAdmin() bool   { return p.Role == model.RoleAdmin }

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
