package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action enumerates grant lifecycle transitions recorded in the audit trail.
type Action string

const (
	// ActionGrant marks a grant becoming active.
	ActionGrant Action = "grant"
	// ActionRevoke marks a manual revocation.
	ActionRevoke Action = "revoke"
	// ActionExpire marks a sweep retiring a grant past its expiry.
	ActionExpire Action = "expire"
	// ActionReject marks a declined approval request.
	ActionReject Action = "reject"
)

// Entry is an immutable record of a grant lifecycle transition. Entries are
// append-only; retention is an external policy concern.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	UserID       int64          `json:"user_id"`
	PermissionID int64          `json:"permission_id"`
	Action       Action         `json:"action"`
	ActorID      *int64         `json:"actor_id,omitempty"`
	Reason       string         `json:"reason"`
	Meta         map[string]any `json:"meta,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Filters narrows audit queries.
type Filters struct {
	UserID       int64
	PermissionID int64
	Action       Action
	Page         int
	PageSize     int
}

// PagingInfo carries pagination state for timeline responses.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a page of audit entries.
type Result struct {
	Entries []Entry    `json:"entries"`
	Paging  PagingInfo `json:"paging"`
}
