package grants

import (
	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/users"
)

// Decision is the answer to an authorization check. The resolver answers
// whether a permission is assigned; the decision additionally reports whether
// it is currently exercisable given the permission's step-up requirements.
type Decision struct {
	Held               bool `json:"held"`
	Requires2FA        bool `json:"requires_2fa"`
	TwoFactorSatisfied bool `json:"two_factor_satisfied"`
	RequiresApproval   bool `json:"requires_approval"`
}

// Exercisable reports whether the gated action may be performed right now.
func (d Decision) Exercisable() bool {
	return d.Held && (!d.Requires2FA || d.TwoFactorSatisfied)
}

// RiskGate enforces per-permission step-up requirements before a grant is
// honoured.
type RiskGate struct{}

// AuthorizeGrant rejects grant-time calls when the permission demands 2FA
// the user has not enrolled in. Approval-workflow permissions pass here and
// are queued by the grant path instead.
func (RiskGate) AuthorizeGrant(p catalog.Permission, u users.User) error {
	if p.Requires2FA && !u.TwoFactorEnabled {
		return ErrStepUpRequired
	}
	return nil
}

// AuthorizeCheck evaluates the step-up state of a held (or not held)
// permission without failing: callers consume the decision.
func (RiskGate) AuthorizeCheck(p catalog.Permission, u users.User, held bool) Decision {
	return Decision{
		Held:               held,
		Requires2FA:        p.Requires2FA,
		TwoFactorSatisfied: !p.Requires2FA || u.TwoFactorEnabled,
		RequiresApproval:   p.RequiresApproval,
	}
}
