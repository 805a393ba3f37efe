package models

import "fmt"

// Role is a member's role within a group. The set of roles is closed.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleMember:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Group is a household that people, tasks and expenses belong to.
type Group struct {
	ID        string
	Name      string
	CreatedAt int64
}

// Membership grants an account a role in a group.
type Membership struct {
	GroupID string
	UserID  string
	Role    Role
}
