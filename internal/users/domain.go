package users

import "time"

// Role is the coarse capability bundle assigned to every user account.
type Role string

const (
	RoleAdmin             Role = "ADMIN"
	RoleSalesManager      Role = "SALES_MANAGER"
	RoleFinanceManager    Role = "FINANCE_MANAGER"
	RoleOperationsManager Role = "OPERATIONS_MANAGER"
)

// Roles lists every assignable role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleSalesManager, RoleFinanceManager, RoleOperationsManager}
}

// Valid reports whether the role is part of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSalesManager, RoleFinanceManager, RoleOperationsManager:
		return true
	}
	return false
}

// Status describes the lifecycle state of a user account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User is a user account as consumed by the permission engine. The identity
// layer authenticates it; this service only administers and resolves it.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	AccessLevel      int       `json:"access_level"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the superuser role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UpdateAccessRequest carries the mutable access attributes of a user.
type UpdateAccessRequest struct {
	Role             *Role   `json:"role,omitempty" validate:"omitempty,oneof=ADMIN SALES_MANAGER FINANCE_MANAGER OPERATIONS_MANAGER"`
	AccessLevel      *int    `json:"access_level,omitempty" validate:"omitempty,gte=1,lte=5"`
	Status           *Status `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
	TwoFactorEnabled *bool   `json:"two_factor_enabled,omitempty"`
}
