// Package auth contains the domain types for user identity.
package auth

// Role represents a user role for authorization purposes.
type Role string

const (
	// RoleAdmin has full access to all workspace operations.
	RoleAdmin Role = "admin"
	// RoleManager can manage projects and assign tasks.
	RoleManager Role = "manager"
	// RoleMember has standard access to assigned tasks.
	RoleMember Role = "member"
)

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	default:
		return false
	}
}

// User represents the authenticated user attached to a session.
// The zero value means no user (anonymous).
type User struct {
	// ID is the unique identifier for this user.
	ID string `json:"id"`
	// Email is the login email address.
	Email string `json:"email"`
	// Name is the display name.
	Name string `json:"name"`
	// Role is the single role assigned to this user.
	Role Role `json:"role"`
}
