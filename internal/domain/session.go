package domain

import "time"

// Role a user role with its own independent session record.
type Role string

const (
	RoleStaff     Role = "staff"
	RolePhysician Role = "physician"
	RolePatient   Role = "patient"
)

// AllRoles every role that can hold a session.
var AllRoles = []Role{RoleStaff, RolePhysician, RolePatient}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// SessionRecord locally recorded login for one role.
// Token is an opaque random string and is not verified server-side.
type SessionRecord struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
