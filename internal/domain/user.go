package domain

import "time"

// Role gates which API surfaces a user may reach.
type Role string

const (
	RoleUser    Role = "USER"
	RoleSupport Role = "SUPPORT"
	RoleAdmin   Role = "ADMIN"
)

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RoleSupport, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	}
	return false
}

// IsStaff is true for SUPPORT and ADMIN.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleAdmin
}

// IsSuperuser is true for ADMIN only.
func (r Role) IsSuperuser() bool {
	return r == RoleAdmin
}

// User is an identity record. Staff and superuser flags are derived from Role.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	DateJoined   time.Time
	LastLogin    *time.Time
	UpdatedAt    time.Time
}

// IsStaff reports the derived staff flag.
func (u *User) IsStaff() bool {
	return u.Role.IsStaff()
}

// IsSuperuser reports the derived superuser flag.
func (u *User) IsSuperuser() bool {
	return u.Role.IsSuperuser()
}

// UserActivityCounts splits the directory by active flag.
type UserActivityCounts struct {
	Active   int
	Inactive int
}
