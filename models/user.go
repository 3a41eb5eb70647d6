package models

import (
	"github.com/regit-contracts/regit/internal/policy"
)

// User is the authenticated caller as seen by the API. Users are managed by
// the external identity provider and are not persisted here.
type User struct {
	ID     string   `json:"id"`
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles"`
	Groups []string `json:"groups,omitempty"`
}

// NewUser builds a User from a principal and its raw claims
func NewUser(principal *policy.Principal, email, name string, groups []string) *User {
	u := &User{Email: email, Name: name, Groups: groups, Roles: []string{}}
	if principal == nil {
		return u
	}
	u.ID = principal.ID
	for _, r := range principal.Roles() {
		u.Roles = append(u.Roles, string(r))
	}
	return u
}

// IsAdmin returns true if the user holds the Administrators role
func (u *User) IsAdmin() bool {
	return u.hasRole(policy.RoleAdministrator)
}

// CanApprove returns true if the user may approve or reject contracts
func (u *User) CanApprove() bool {
	return u.IsAdmin() || u.hasRole(policy.RoleManager)
}

func (u *User) hasRole(role policy.Role) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
