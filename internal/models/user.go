package models

type UserRole string

const (
	RoleEmployee   UserRole = "employee"
	RoleManager    UserRole = "manager"
	RoleAdmin      UserRole = "admin"
	RoleSuperadmin UserRole = "superadmin"
)

// CanOverrideScores reports whether the role may author manual score
// corrections.
func (r UserRole) CanOverrideScores() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSuperadmin:
		return true
	}
	return false
}

// Actor is the already-authenticated identity acting on a request. It is
// supplied by the identity provider; this service never authenticates.
type Actor struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organization_id"`
	Role           UserRole `json:"role"`
}
