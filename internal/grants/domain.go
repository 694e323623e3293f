package grants

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingDependency indicates the user lacks a permission the
	// requested one depends on.
	ErrMissingDependency = errors.New("grants: missing dependency")
	// ErrConflict indicates the user already holds a permission that is
	// mutually exclusive with the requested one.
	ErrConflict = errors.New("grants: conflicting permission held")
	// ErrStepUpRequired indicates the permission requires 2FA the user has
	// not enrolled in.
	ErrStepUpRequired = errors.New("grants: two-factor enrollment required")
	// ErrPendingApproval signals the grant was queued for approval rather
	// than activated. Informational, not a failure.
	ErrPendingApproval = errors.New("grants: grant pending approval")
	// ErrPermissionInactive indicates the permission definition is retired.
	ErrPermissionInactive = errors.New("grants: permission is inactive")
	// ErrNotFound indicates the requested grant does not exist.
	ErrNotFound = errors.New("grants: not found")
	// ErrNotPending indicates an approval decision on a grant that is not
	// awaiting one.
	ErrNotPending = errors.New("grants: grant is not pending approval")
	// ErrNotDelegable indicates the delegator's grant does not allow
	// onward delegation.
	ErrNotDelegable = errors.New("grants: grant is not delegable")
	// ErrDelegationExhausted indicates the delegation depth reached zero.
	ErrDelegationExhausted = errors.New("grants: delegation limit exhausted")

	// errDuplicateActive is an internal signal that the partial unique
	// index rejected a second active grant for the same pair. Callers see
	// the existing grant, never this error.
	errDuplicateActive = errors.New("grants: duplicate active grant")
)

// Status is the storage state of a grant row.
type Status string

const (
	// StatusActive marks a live grant.
	StatusActive Status = "active"
	// StatusPending marks a grant awaiting approval. Pending rows never
	// count toward the effective set.
	StatusPending Status = "pending"
	// StatusExpired marks a grant the sweeper retired. The transition frees
	// the single-active-grant constraint for the (user, permission) pair.
	StatusExpired Status = "expired"
)

// Grant is a direct, per-user assignment of one permission. Once a grant
// becomes inactive through revocation or expiry it is never reactivated;
// the row is retained as evidence.
type Grant struct {
	ID              uuid.UUID       `json:"id"`
	UserID          int64           `json:"user_id"`
	PermissionID    int64           `json:"permission_id"`
	Status          Status          `json:"status"`
	GrantedBy       *int64          `json:"granted_by,omitempty"`
	GrantedAt       time.Time       `json:"granted_at"`
	GrantReason     string          `json:"grant_reason"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	CanDelegate     bool            `json:"can_delegate"`
	DelegationLimit int             `json:"delegation_limit"`
	Conditions      json.RawMessage `json:"conditions,omitempty"`
	RevokedAt       *time.Time      `json:"revoked_at,omitempty"`
	RevokedBy       *int64          `json:"revoked_by,omitempty"`
	RevokeReason    string          `json:"revoke_reason,omitempty"`
	SweptAt         *time.Time      `json:"swept_at,omitempty"`
}

// ActiveAt reports whether the grant confers its permission at the given
// instant: active status, not revoked, not past expiry.
func (g Grant) ActiveAt(now time.Time) bool {
	if g.Status != StatusActive || g.RevokedAt != nil {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Pending reports whether the grant awaits an approval decision.
func (g Grant) Pending() bool {
	return g.Status == StatusPending && g.RevokedAt == nil
}

// GrantRequest describes a grant operation.
type GrantRequest struct {
	UserID          int64           `json:"user_id" validate:"required,gt=0"`
	Code            string          `json:"code" validate:"required"`
	Reason          string          `json:"reason" validate:"required"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	CanDelegate     bool            `json:"can_delegate"`
	DelegationLimit int             `json:"delegation_limit" validate:"gte=0"`
	Conditions      json.RawMessage `json:"conditions,omitempty"`
}

// RevokeRequest describes a revoke operation.
type RevokeRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Code   string `json:"code" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// DelegateRequest describes passing a held permission on to another user.
type DelegateRequest struct {
	UserID int64  `json:"user_id" validate:"required,gt=0"`
	Code   string `json:"code" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}

// BulkRequest fans one operation out over many users and permissions.
type BulkRequest struct {
	UserIDs []int64  `json:"user_ids" validate:"required,min=1,dive,gt=0"`
	Codes   []string `json:"codes" validate:"required,min=1,dive,required"`
	Reason  string   `json:"reason" validate:"required"`
}

// BulkResult reports the outcome of one (user, permission) pair.
type BulkResult struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}
