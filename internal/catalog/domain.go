package catalog

import (
	"time"

	"github.com/steward-iam/steward/internal/users"
)

// RiskLevel classifies how dangerous a permission is to hold.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Valid reports whether the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Permission is a named capability. Codes are stable, human-referenced keys
// such as "users.delete" and never change once a grant references them.
type Permission struct {
	ID               int64        `json:"id"`
	Code             string       `json:"code"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	Category         string       `json:"category"`
	Module           string       `json:"module"`
	ParentID         *int64       `json:"parent_id,omitempty"`
	Path             string       `json:"path"`
	RiskLevel        RiskLevel    `json:"risk_level"`
	Requires2FA      bool         `json:"requires_2fa"`
	RequiresApproval bool         `json:"requires_approval"`
	DefaultForRoles  []users.Role `json:"default_for_roles"`
	ExcludedRoles    []users.Role `json:"excluded_from_roles"`
	MinAccessLevel   int          `json:"min_access_level"`
	Dependencies     []int64      `json:"dependencies"`
	Conflicts        []int64      `json:"conflicts"`
	IsActive         bool         `json:"is_active"`
	IsSystem         bool         `json:"is_system"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// DefaultFor reports whether the permission belongs to the role's defaults,
// honouring the exclusion list.
func (p Permission) DefaultFor(role users.Role) bool {
	for _, excluded := range p.ExcludedRoles {
		if excluded == role {
			return false
		}
	}
	for _, def := range p.DefaultForRoles {
		if def == role {
			return true
		}
	}
	return false
}

// CreatePermissionRequest describes a new catalog entry.
type CreatePermissionRequest struct {
	Code             string       `json:"code" validate:"required,max=100"`
	Name             string       `json:"name" validate:"required,max=200"`
	Description      string       `json:"description"`
	Category         string       `json:"category" validate:"max=100"`
	Module           string       `json:"module" validate:"max=100"`
	ParentID         *int64       `json:"parent_id,omitempty" validate:"omitempty,gt=0"`
	RiskLevel        RiskLevel    `json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Requires2FA      bool         `json:"requires_2fa"`
	RequiresApproval bool         `json:"requires_approval"`
	DefaultForRoles  []users.Role `json:"default_for_roles"`
	ExcludedRoles    []users.Role `json:"excluded_from_roles"`
	MinAccessLevel   int          `json:"min_access_level" validate:"gte=1,lte=5"`
	Dependencies     []int64      `json:"dependencies"`
	Conflicts        []int64      `json:"conflicts"`
	IsSystem         bool         `json:"is_system"`
}

// UpdatePermissionRequest carries mutable catalog attributes. The code is
// deliberately absent: codes are immutable once assigned.
type UpdatePermissionRequest struct {
	Name             *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Description      *string       `json:"description,omitempty"`
	Category         *string       `json:"category,omitempty" validate:"omitempty,max=100"`
	Module           *string       `json:"module,omitempty" validate:"omitempty,max=100"`
	ParentID         *int64        `json:"parent_id,omitempty"`
	RiskLevel        *RiskLevel    `json:"risk_level,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Requires2FA      *bool         `json:"requires_2fa,omitempty"`
	RequiresApproval *bool         `json:"requires_approval,omitempty"`
	DefaultForRoles  *[]users.Role `json:"default_for_roles,omitempty"`
	ExcludedRoles    *[]users.Role `json:"excluded_from_roles,omitempty"`
	MinAccessLevel   *int          `json:"min_access_level,omitempty" validate:"omitempty,gte=1,lte=5"`
	Dependencies     *[]int64      `json:"dependencies,omitempty"`
	Conflicts        *[]int64      `json:"conflicts,omitempty"`
}
