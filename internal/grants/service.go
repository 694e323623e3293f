package grants

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/steward-iam/steward/internal/audit"
	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/users"
)

// AccessEvent describes a completed grant lifecycle transition for the
// notification layer.
type AccessEvent struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
	Action string `json:"action"`
}

// Notifier receives access events after the underlying mutation committed.
// Delivery is fire-and-forget: failures are logged, never propagated.
type Notifier interface {
	AccessChanged(ctx context.Context, event AccessEvent) error
}

// MetricsPort records grant lifecycle counters.
type MetricsPort interface {
	CountGrantEvent(action string)
	CountSwept(n int)
}

// Service orchestrates the grant lifecycle: create, approve, reject, revoke,
// delegate, and resolve. Every mutation commits atomically with its audit
// entry.
type Service struct {
	repo     RepositoryPort
	catalog  CatalogPort
	users    UserPort
	resolver *Resolver
	gate     RiskGate
	notifier Notifier
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the grant service.
func NewService(repo RepositoryPort, catalogPort CatalogPort, userPort UserPort, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalogPort,
		users:    userPort,
		resolver: NewResolver(catalogPort, repo),
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SetMetrics attaches lifecycle counters. Optional.
func (s *Service) SetMetrics(m MetricsPort) {
	s.metrics = m
}

// Resolver exposes the effective permission resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Resolve computes the effective permission set for a user ID.
func (s *Service) Resolve(ctx context.Context, userID int64) (Effective, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Effective{}, err
	}
	return s.resolver.Resolve(ctx, user)
}

// Check answers whether a user holds a permission and whether it is
// currently exercisable. The admin role bypasses both the grant store and
// risk gating.
func (s *Service) Check(ctx context.Context, userID int64, code string) (Decision, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	perm, err := s.catalog.GetByCode(ctx, code)
	if err != nil {
		return Decision{}, err
	}
	if user.Status == users.StatusActive && user.IsAdmin() {
		return Decision{Held: true, TwoFactorSatisfied: true}, nil
	}
	eff, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	return s.gate.AuthorizeCheck(perm, user, eff.Has(code)), nil
}

// HasAny reports whether the user holds at least one of the codes. Unknown
// users hold nothing.
func (s *Service) HasAny(ctx context.Context, userID int64, codes ...string) (bool, error) {
	eff, err := s.resolveLenient(ctx, userID)
	if err != nil {
		return false, err
	}
	return eff.HasAny(codes...), nil
}

// HasAll reports whether the user holds every code. Unknown users hold
// nothing.
func (s *Service) HasAll(ctx context.Context, userID int64, codes ...string) (bool, error) {
	eff, err := s.resolveLenient(ctx, userID)
	if err != nil {
		return false, err
	}
	return eff.HasAll(codes...), nil
}

func (s *Service) resolveLenient(ctx context.Context, userID int64) (Effective, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Effective{codes: map[string]struct{}{}}, nil
		}
		return Effective{}, err
	}
	return s.resolver.Resolve(ctx, user)
}

// Grant assigns a permission to a user. Re-granting an already-held
// permission is an idempotent no-op returning the existing grant.
// Approval-gated permissions produce a pending grant and ErrPendingApproval.
func (s *Service) Grant(ctx context.Context, req GrantRequest, actorID *int64) (Grant, error) {
	user, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return Grant{}, err
	}
	perm, err := s.catalog.GetByCode(ctx, req.Code)
	if err != nil {
		return Grant{}, err
	}
	if !perm.IsActive {
		return Grant{}, ErrPermissionInactive
	}

	eff, err := s.resolver.Resolve(ctx, user)
	if err != nil {
		return Grant{}, err
	}
	if err := s.checkEdges(ctx, perm, eff); err != nil {
		return Grant{}, err
	}
	if err := s.gate.AuthorizeGrant(perm, user); err != nil {
		return Grant{}, err
	}

	status := StatusActive
	if perm.RequiresApproval {
		status = StatusPending
	}
	now := s.now()

	var (
		result    Grant
		duplicate bool
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.FindActiveForUpdate(ctx, req.UserID, perm.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.ActiveAt(now) {
				result = *existing
				duplicate = true
				return nil
			}
			// Expired but not yet swept: retire it inline so the pair is
			// free for a fresh grant.
			if _, err := tx.MarkExpired(ctx, existing.ID, now); err != nil {
				return err
			}
			if err := tx.InsertAudit(ctx, expiryEntry(*existing, now)); err != nil {
				return err
			}
		}
		if status == StatusPending {
			// Repeated requests reuse the open approval request instead of
			// piling duplicates into the queue.
			pending, err := tx.FindPendingForUpdate(ctx, req.UserID, perm.ID)
			if err != nil {
				return err
			}
			if pending != nil {
				result = *pending
				return nil
			}
		}
		inserted, err := tx.Insert(ctx, Grant{
			ID:              uuid.New(),
			UserID:          req.UserID,
			PermissionID:    perm.ID,
			Status:          status,
			GrantedBy:       actorID,
			GrantedAt:       now,
			GrantReason:     req.Reason,
			ExpiresAt:       req.ExpiresAt,
			CanDelegate:     req.CanDelegate,
			DelegationLimit: req.DelegationLimit,
			Conditions:      req.Conditions,
		})
		if err != nil {
			return err
		}
		if status == StatusActive {
			if err := tx.InsertAudit(ctx, grantEntry(inserted, actorID)); err != nil {
				return err
			}
		}
		result = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateActive) {
			// Lost a race with a concurrent grant for the same pair; the
			// surviving grant is the answer.
			if existing, ferr := s.repo.FindActive(ctx, req.UserID, perm.ID); ferr == nil && existing != nil {
				return *existing, nil
			}
		}
		return Grant{}, fmt.Errorf("grants: grant %s to user %d: %w", req.Code, req.UserID, err)
	}
	if duplicate {
		return result, nil
	}
	if status == StatusPending {
		return result, ErrPendingApproval
	}
	s.notify(ctx, AccessEvent{UserID: req.UserID, Code: perm.Code, Action: string(audit.ActionGrant)})
	return result, nil
}

// Revoke retires a user's active grant. Revoking a permission the user does
// not hold is a no-op, not an error.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest, actorID *int64) error {
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		return err
	}
	perm, err := s.catalog.GetByCode(ctx, req.Code)
	if err != nil {
		return err
	}
	now := s.now()

	var revoked bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.FindActiveForUpdate(ctx, req.UserID, perm.ID)
		if err != nil {
			return err
		}
		if existing == nil || !existing.ActiveAt(now) {
			return nil
		}
		if err := tx.Revoke(ctx, existing.ID, now, actorID, req.Reason); err != nil {
			return err
		}
		if err := tx.InsertAudit(ctx, audit.Entry{
			UserID:       existing.UserID,
			PermissionID: existing.PermissionID,
			Action:       audit.ActionRevoke,
			ActorID:      actorID,
			Reason:       req.Reason,
			Meta:         grantMeta(*existing),
			OccurredAt:   now,
		}); err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("grants: revoke %s from user %d: %w", req.Code, req.UserID, err)
	}
	if revoked {
		s.notify(ctx, AccessEvent{UserID: req.UserID, Code: perm.Code, Action: string(audit.ActionRevoke)})
	}
	return nil
}

// Approve activates a pending grant. The activation is audited as the grant
// event; a pending request whose pair gained an active grant in the meantime
// is rejected as superseded.
func (s *Service) Approve(ctx context.Context, grantID uuid.UUID, actorID int64) (Grant, error) {
	now := s.now()
	var (
		result         Grant
		expiredPending bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.GetGrant(ctx, grantID)
		if err != nil {
			return err
		}
		if !g.Pending() {
			return ErrNotPending
		}
		if g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			// The callback must return nil so the rejection commits; an
			// error here would roll the whole transaction back.
			if err := s.rejectInTx(ctx, tx, *g, now, &actorID, "request expired before approval"); err != nil {
				return err
			}
			expiredPending = true
			return nil
		}
		existing, err := tx.FindActiveForUpdate(ctx, g.UserID, g.PermissionID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ActiveAt(now) {
			if err := s.rejectInTx(ctx, tx, *g, now, &actorID, "superseded by an existing active grant"); err != nil {
				return err
			}
			result = *existing
			return nil
		}
		if err := tx.Activate(ctx, g.ID, now); err != nil {
			return err
		}
		activated := *g
		activated.Status = StatusActive
		activated.GrantedAt = now
		if err := tx.InsertAudit(ctx, grantEntry(activated, &actorID)); err != nil {
			return err
		}
		result = activated
		return nil
	})
	if err != nil {
		return Grant{}, err
	}
	if expiredPending {
		return Grant{}, ErrNotPending
	}
	if result.Status == StatusActive {
		if perm, perr := s.catalog.GetByID(ctx, result.PermissionID); perr == nil {
			s.notify(ctx, AccessEvent{UserID: result.UserID, Code: perm.Code, Action: string(audit.ActionGrant)})
		}
	}
	return result, nil
}

// Reject declines a pending grant. The decision is audited distinctly and
// the request never becomes active.
func (s *Service) Reject(ctx context.Context, grantID uuid.UUID, actorID int64, reason string) error {
	now := s.now()
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.GetGrant(ctx, grantID)
		if err != nil {
			return err
		}
		if !g.Pending() {
			return ErrNotPending
		}
		return s.rejectInTx(ctx, tx, *g, now, &actorID, reason)
	})
}

func (s *Service) rejectInTx(ctx context.Context, tx TxRepository, g Grant, now time.Time, actorID *int64, reason string) error {
	if err := tx.MarkRejected(ctx, g.ID, now, actorID, reason); err != nil {
		return err
	}
	return tx.InsertAudit(ctx, audit.Entry{
		UserID:       g.UserID,
		PermissionID: g.PermissionID,
		Action:       audit.ActionReject,
		ActorID:      actorID,
		Reason:       reason,
		Meta:         grantMeta(g),
		OccurredAt:   now,
	})
}

// Delegate passes a held, delegable permission on to another user. Each hop
// consumes one unit of the remaining delegation depth.
func (s *Service) Delegate(ctx context.Context, delegatorID int64, req DelegateRequest) (Grant, error) {
	delegator, err := s.users.Get(ctx, delegatorID)
	if err != nil {
		return Grant{}, err
	}
	// Suspended and inactive accounts hold nothing, so they cannot pass
	// anything on either.
	if delegator.Status != users.StatusActive {
		return Grant{}, ErrNotDelegable
	}
	perm, err := s.catalog.GetByCode(ctx, req.Code)
	if err != nil {
		return Grant{}, err
	}
	held, err := s.repo.FindActive(ctx, delegatorID, perm.ID)
	if err != nil {
		return Grant{}, err
	}
	if held == nil || !held.ActiveAt(s.now()) || !held.CanDelegate {
		return Grant{}, ErrNotDelegable
	}
	if held.DelegationLimit <= 0 {
		return Grant{}, ErrDelegationExhausted
	}
	remaining := held.DelegationLimit - 1
	return s.Grant(ctx, GrantRequest{
		UserID:          req.UserID,
		Code:            req.Code,
		Reason:          req.Reason,
		ExpiresAt:       held.ExpiresAt,
		CanDelegate:     remaining > 0,
		DelegationLimit: remaining,
		Conditions:      held.Conditions,
	}, &delegatorID)
}

// ListActiveForUser returns the user's live grants.
func (s *Service) ListActiveForUser(ctx context.Context, userID int64) ([]Grant, error) {
	return s.repo.ListActiveForUser(ctx, userID, s.now())
}

// ListPending returns grants awaiting approval.
func (s *Service) ListPending(ctx context.Context) ([]Grant, error) {
	return s.repo.ListPending(ctx)
}

// checkEdges enforces the dependency and conflict graphs against the user's
// current effective set. Dependencies are enforced at grant time only:
// revoking a dependency later does not cascade to dependents.
func (s *Service) checkEdges(ctx context.Context, perm catalog.Permission, eff Effective) error {
	for _, depID := range perm.Dependencies {
		dep, err := s.catalog.GetByID(ctx, depID)
		if err != nil {
			return fmt.Errorf("%w: dependency %d of %s", ErrMissingDependency, depID, perm.Code)
		}
		if !eff.Has(dep.Code) {
			return fmt.Errorf("%w: %s requires %s", ErrMissingDependency, perm.Code, dep.Code)
		}
	}
	for _, conflictID := range perm.Conflicts {
		conflict, err := s.catalog.GetByID(ctx, conflictID)
		if err != nil {
			continue
		}
		if eff.Has(conflict.Code) {
			return fmt.Errorf("%w: %s conflicts with %s", ErrConflict, perm.Code, conflict.Code)
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, event AccessEvent) {
	if s.metrics != nil {
		s.metrics.CountGrantEvent(event.Action)
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AccessChanged(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("access change notification",
			slog.Int64("user_id", event.UserID),
			slog.String("code", event.Code),
			slog.Any("error", err))
	}
}

func grantEntry(g Grant, actorID *int64) audit.Entry {
	return audit.Entry{
		UserID:       g.UserID,
		PermissionID: g.PermissionID,
		Action:       audit.ActionGrant,
		ActorID:      actorID,
		Reason:       g.GrantReason,
		Meta:         grantMeta(g),
		OccurredAt:   g.GrantedAt,
	}
}

func expiryEntry(g Grant, now time.Time) audit.Entry {
	return audit.Entry{
		UserID:       g.UserID,
		PermissionID: g.PermissionID,
		Action:       audit.ActionExpire,
		Reason:       "grant expired",
		Meta:         grantMeta(g),
		OccurredAt:   now,
	}
}

func grantMeta(g Grant) map[string]any {
	meta := map[string]any{
		"grant_id":         g.ID.String(),
		"can_delegate":     g.CanDelegate,
		"delegation_limit": g.DelegationLimit,
	}
	if g.ExpiresAt != nil {
		meta["expires_at"] = g.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return meta
}
