package grants

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/steward-iam/steward/internal/audit"
	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/users"
)

type memoryGrantRepo struct {
	mu     sync.Mutex
	grants map[uuid.UUID]Grant
	audits []audit.Entry
}

func newMemoryGrantRepo() *memoryGrantRepo {
	return &memoryGrantRepo{grants: make(map[uuid.UUID]Grant)}
}

// WithTx serialises callbacks, standing in for row locks, and restores the
// pre-transaction state when the callback errors, matching the rollback the
// production repository gets from the database.
func (r *memoryGrantRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[uuid.UUID]Grant, len(r.grants))
	for id, g := range r.grants {
		snapshot[id] = g
	}
	audits := len(r.audits)
	err := fn(ctx, &memoryGrantTx{repo: r})
	if err != nil {
		r.grants = snapshot
		r.audits = r.audits[:audits]
	}
	return err
}

func (r *memoryGrantRepo) FindActive(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findActiveLocked(userID, permissionID)
}

func (r *memoryGrantRepo) findActiveLocked(userID, permissionID int64) (*Grant, error) {
	for _, g := range r.grants {
		if g.UserID == userID && g.PermissionID == permissionID && g.Status == StatusActive && g.RevokedAt == nil {
			copied := g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryGrantRepo) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getGrantLocked(id)
}

func (r *memoryGrantRepo) findPendingLocked(userID, permissionID int64) (*Grant, error) {
	for _, g := range r.grants {
		if g.UserID == userID && g.PermissionID == permissionID && g.Pending() {
			copied := g
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryGrantRepo) getGrantLocked(id uuid.UUID) (*Grant, error) {
	g, ok := r.grants[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := g
	return &copied, nil
}

func (r *memoryGrantRepo) ListActiveForUser(ctx context.Context, userID int64, now time.Time) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Grant
	for _, g := range r.grants {
		if g.UserID == userID && g.ActiveAt(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryGrantRepo) ListExpired(ctx context.Context, now time.Time) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Grant
	for _, g := range r.grants {
		if g.Status == StatusActive && g.RevokedAt == nil && g.SweptAt == nil &&
			g.ExpiresAt != nil && !g.ExpiresAt.After(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryGrantRepo) ListPending(ctx context.Context) ([]Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Grant
	for _, g := range r.grants {
		if g.Pending() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryGrantRepo) auditsByAction(action audit.Action) []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Entry
	for _, e := range r.audits {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type memoryGrantTx struct {
	repo *memoryGrantRepo
}

func (t *memoryGrantTx) FindActiveForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	return t.repo.findActiveLocked(userID, permissionID)
}

func (t *memoryGrantTx) FindPendingForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	return t.repo.findPendingLocked(userID, permissionID)
}

func (t *memoryGrantTx) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	return t.repo.getGrantLocked(id)
}

func (t *memoryGrantTx) Insert(ctx context.Context, g Grant) (Grant, error) {
	if g.Status == StatusActive {
		existing, _ := t.repo.findActiveLocked(g.UserID, g.PermissionID)
		if existing != nil {
			return Grant{}, errDuplicateActive
		}
	}
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now()
	}
	t.repo.grants[g.ID] = g
	return g, nil
}

func (t *memoryGrantTx) Revoke(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error {
	g, ok := t.repo.grants[id]
	if !ok || g.RevokedAt != nil {
		return ErrNotFound
	}
	g.RevokedAt = &at
	g.RevokedBy = by
	g.RevokeReason = reason
	t.repo.grants[id] = g
	return nil
}

func (t *memoryGrantTx) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	g, ok := t.repo.grants[id]
	if !ok || !g.Pending() {
		return ErrNotPending
	}
	g.Status = StatusActive
	g.GrantedAt = at
	t.repo.grants[id] = g
	return nil
}

func (t *memoryGrantTx) MarkRejected(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error {
	g, ok := t.repo.grants[id]
	if !ok || !g.Pending() {
		return ErrNotPending
	}
	g.RevokedAt = &at
	g.RevokedBy = by
	g.RevokeReason = reason
	t.repo.grants[id] = g
	return nil
}

func (t *memoryGrantTx) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	g, ok := t.repo.grants[id]
	if !ok || g.Status != StatusActive || g.SweptAt != nil {
		return false, nil
	}
	g.Status = StatusExpired
	g.SweptAt = &at
	t.repo.grants[id] = g
	return true, nil
}

func (t *memoryGrantTx) InsertAudit(ctx context.Context, e audit.Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	t.repo.audits = append(t.repo.audits, e)
	return nil
}

type fakeCatalog struct {
	perms map[string]catalog.Permission
}

func (f *fakeCatalog) GetByCode(ctx context.Context, code string) (catalog.Permission, error) {
	p, ok := f.perms[code]
	if !ok {
		return catalog.Permission{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetByID(ctx context.Context, id int64) (catalog.Permission, error) {
	for _, p := range f.perms {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Permission{}, catalog.ErrNotFound
}

func (f *fakeCatalog) ListActive(ctx context.Context) ([]catalog.Permission, error) {
	var out []catalog.Permission
	for _, p := range f.perms {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[int64]users.User
}

func (f *fakeUsers) Get(ctx context.Context, id int64) (users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

type recordingNotifier struct {
	events []AccessEvent
}

func (n *recordingNotifier) AccessChanged(ctx context.Context, event AccessEvent) error {
	n.events = append(n.events, event)
	return nil
}

type fixture struct {
	repo     *memoryGrantRepo
	catalog  *fakeCatalog
	users    *fakeUsers
	notifier *recordingNotifier
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryGrantRepo()
	cat := &fakeCatalog{perms: map[string]catalog.Permission{
		"reports.view": {ID: 1, Code: "reports.view", RiskLevel: catalog.RiskLow, IsActive: true},
		"reports.export": {ID: 2, Code: "reports.export", RiskLevel: catalog.RiskMedium,
			Dependencies: []int64{1}, IsActive: true},
		"ledger.close": {ID: 3, Code: "ledger.close", RiskLevel: catalog.RiskHigh,
			Requires2FA: true, IsActive: true},
		"ledger.audit": {ID: 4, Code: "ledger.audit", RiskLevel: catalog.RiskHigh,
			Conflicts: []int64{3}, IsActive: true},
		"vault.admin": {ID: 5, Code: "vault.admin", RiskLevel: catalog.RiskCritical,
			RequiresApproval: true, IsActive: true},
		"legacy.tool": {ID: 6, Code: "legacy.tool", IsActive: false},
	}}
	usr := &fakeUsers{users: map[int64]users.User{
		1: {ID: 1, Role: users.RoleFinanceManager, AccessLevel: 4, TwoFactorEnabled: true, Status: users.StatusActive},
		2: {ID: 2, Role: users.RoleOperationsManager, AccessLevel: 2, Status: users.StatusActive},
		3: {ID: 3, Role: users.RoleAdmin, AccessLevel: 5, TwoFactorEnabled: true, Status: users.StatusActive},
		4: {ID: 4, Role: users.RoleSalesManager, AccessLevel: 3, Status: users.StatusActive},
	}}
	notifier := &recordingNotifier{}
	svc := NewService(repo, cat, usr, notifier, slog.Default())
	return &fixture{repo: repo, catalog: cat, users: usr, notifier: notifier, service: svc}
}

func TestGrantCreatesActiveGrantWithAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := int64(3)

	g, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "quarterly reporting"}, &actor)
	require.NoError(t, err)
	require.Equal(t, StatusActive, g.Status)
	require.Equal(t, int64(1), g.UserID)

	entries := f.repo.auditsByAction(audit.ActionGrant)
	require.Len(t, entries, 1)
	require.Equal(t, int64(1), entries[0].UserID)
	require.NotNil(t, entries[0].ActorID)
	require.Equal(t, actor, *entries[0].ActorID)

	require.Len(t, f.notifier.events, 1)
	require.Equal(t, "grant", f.notifier.events[0].Action)
}

func TestGrantIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "initial"}, nil)
	require.NoError(t, err)

	second, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "again"}, nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	require.Len(t, f.repo.auditsByAction(audit.ActionGrant), 1)
	require.Len(t, f.notifier.events, 1)
}

func TestGrantRejectsMissingDependency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.export", Reason: "export"}, nil)
	require.ErrorIs(t, err, ErrMissingDependency)
	require.Empty(t, f.repo.audits)
}

func TestGrantSucceedsWhenDependencyHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "base"}, nil)
	require.NoError(t, err)

	g, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.export", Reason: "export"}, nil)
	require.NoError(t, err)
	require.Equal(t, StatusActive, g.Status)
}

func TestGrantRejectsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "ledger.close", Reason: "close"}, nil)
	require.NoError(t, err)

	_, err = f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "ledger.audit", Reason: "audit"}, nil)
	require.ErrorIs(t, err, ErrConflict)
}

func TestGrantRequiresTwoFactorEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// User 2 has not enrolled in 2FA.
	_, err := f.service.Grant(ctx, GrantRequest{UserID: 2, Code: "ledger.close", Reason: "close"}, nil)
	require.ErrorIs(t, err, ErrStepUpRequired)
	require.Empty(t, f.repo.audits)
}

func TestGrantQueuesApprovalGatedPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "vault.admin", Reason: "incident response"}, nil)
	require.ErrorIs(t, err, ErrPendingApproval)
	require.Equal(t, StatusPending, g.Status)

	// Pending grants are invisible to the resolver and unaudited.
	eff, err := f.service.Resolve(ctx, 1)
	require.NoError(t, err)
	require.False(t, eff.Has("vault.admin"))
	require.Empty(t, f.repo.audits)
	require.Empty(t, f.notifier.events)
}

func TestGrantRejectsInactivePermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "legacy.tool", Reason: "old"}, nil)
	require.ErrorIs(t, err, ErrPermissionInactive)
}

func TestGrantUnknownUserAndPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 99, Code: "reports.view", Reason: "x"}, nil)
	require.ErrorIs(t, err, users.ErrNotFound)

	_, err = f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "nope", Reason: "x"}, nil)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestGrantRetiresExpiredUnsweptGrantInline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	stale := Grant{ID: uuid.New(), UserID: 1, PermissionID: 1, Status: StatusActive,
		GrantedAt: past.Add(-time.Hour), ExpiresAt: &past}
	f.repo.grants[stale.ID] = stale

	g, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "fresh"}, nil)
	require.NoError(t, err)
	require.NotEqual(t, stale.ID, g.ID)
	require.Equal(t, StatusActive, g.Status)

	swept := f.repo.grants[stale.ID]
	require.Equal(t, StatusExpired, swept.Status)
	require.NotNil(t, swept.SweptAt)
	require.Len(t, f.repo.auditsByAction(audit.ActionExpire), 1)
	require.Len(t, f.repo.auditsByAction(audit.ActionGrant), 1)
}

func TestRevokeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := int64(3)

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "base"}, &actor)
	require.NoError(t, err)

	eff, err := f.service.Resolve(ctx, 1)
	require.NoError(t, err)
	require.True(t, eff.Has("reports.view"))

	err = f.service.Revoke(ctx, RevokeRequest{UserID: 1, Code: "reports.view", Reason: "offboarding"}, &actor)
	require.NoError(t, err)

	eff, err = f.service.Resolve(ctx, 1)
	require.NoError(t, err)
	require.False(t, eff.Has("reports.view"))

	revokes := f.repo.auditsByAction(audit.ActionRevoke)
	require.Len(t, revokes, 1)
	require.Equal(t, "offboarding", revokes[0].Reason)
}

func TestRevokeUnheldIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.service.Revoke(ctx, RevokeRequest{UserID: 1, Code: "reports.view", Reason: "none"}, nil)
	require.NoError(t, err)
	require.Empty(t, f.repo.audits)
	require.Empty(t, f.notifier.events)
}

func TestApproveActivatesPendingGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "vault.admin", Reason: "incident"}, nil)
	require.ErrorIs(t, err, ErrPendingApproval)

	approved, err := f.service.Approve(ctx, pending.ID, 3)
	require.NoError(t, err)
	require.Equal(t, StatusActive, approved.Status)

	eff, err := f.service.Resolve(ctx, 1)
	require.NoError(t, err)
	require.True(t, eff.Has("vault.admin"))

	entries := f.repo.auditsByAction(audit.ActionGrant)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ActorID)
	require.Equal(t, int64(3), *entries[0].ActorID)

	// A second decision on the same request is rejected.
	_, err = f.service.Approve(ctx, pending.ID, 3)
	require.ErrorIs(t, err, ErrNotPending)
}

func TestApproveExpiredRequestCommitsRejection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	stale := Grant{ID: uuid.New(), UserID: 1, PermissionID: 5, Status: StatusPending,
		GrantedAt: past.Add(-time.Hour), ExpiresAt: &past}
	f.repo.grants[stale.ID] = stale

	_, err := f.service.Approve(ctx, stale.ID, 3)
	require.ErrorIs(t, err, ErrNotPending)

	// The rejection must survive the transaction even though the caller
	// sees an error.
	stored := f.repo.grants[stale.ID]
	require.NotNil(t, stored.RevokedAt)
	require.False(t, stored.Pending())
	rejects := f.repo.auditsByAction(audit.ActionReject)
	require.Len(t, rejects, 1)
	require.Equal(t, "request expired before approval", rejects[0].Reason)

	queue, err := f.service.ListPending(ctx)
	require.NoError(t, err)
	require.Empty(t, queue)
}

func TestGrantPendingRequestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "vault.admin", Reason: "incident"}, nil)
	require.ErrorIs(t, err, ErrPendingApproval)

	second, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "vault.admin", Reason: "retry"}, nil)
	require.ErrorIs(t, err, ErrPendingApproval)
	require.Equal(t, first.ID, second.ID)

	queue, err := f.service.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
}

func TestRejectDeclinesPendingGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "vault.admin", Reason: "incident"}, nil)
	require.ErrorIs(t, err, ErrPendingApproval)

	err = f.service.Reject(ctx, pending.ID, 3, "not justified")
	require.NoError(t, err)

	eff, err := f.service.Resolve(ctx, 1)
	require.NoError(t, err)
	require.False(t, eff.Has("vault.admin"))

	rejects := f.repo.auditsByAction(audit.ActionReject)
	require.Len(t, rejects, 1)
	require.Equal(t, "not justified", rejects[0].Reason)
	require.Empty(t, f.repo.auditsByAction(audit.ActionGrant))

	err = f.service.Reject(ctx, pending.ID, 3, "again")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestDelegateConsumesDepth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := int64(3)

	_, err := f.service.Grant(ctx, GrantRequest{
		UserID: 1, Code: "reports.view", Reason: "lead",
		CanDelegate: true, DelegationLimit: 2,
	}, &actor)
	require.NoError(t, err)

	delegated, err := f.service.Delegate(ctx, 1, DelegateRequest{UserID: 2, Code: "reports.view", Reason: "cover"})
	require.NoError(t, err)
	require.Equal(t, int64(2), delegated.UserID)
	require.True(t, delegated.CanDelegate)
	require.Equal(t, 1, delegated.DelegationLimit)
	require.NotNil(t, delegated.GrantedBy)
	require.Equal(t, int64(1), *delegated.GrantedBy)

	// Second hop exhausts the depth.
	hop, err := f.service.Delegate(ctx, 2, DelegateRequest{UserID: 4, Code: "reports.view", Reason: "onward"})
	require.NoError(t, err)
	require.False(t, hop.CanDelegate)
	require.Equal(t, 0, hop.DelegationLimit)
}

func TestDelegateRequiresDelegableGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "plain"}, nil)
	require.NoError(t, err)

	_, err = f.service.Delegate(ctx, 1, DelegateRequest{UserID: 2, Code: "reports.view", Reason: "cover"})
	require.ErrorIs(t, err, ErrNotDelegable)

	// Holding nothing at all is equally non-delegable.
	_, err = f.service.Delegate(ctx, 2, DelegateRequest{UserID: 1, Code: "ledger.close", Reason: "swap"})
	require.ErrorIs(t, err, ErrNotDelegable)

	// A delegable grant whose depth is spent refuses further hops.
	drained := Grant{ID: uuid.New(), UserID: 4, PermissionID: 1, Status: StatusActive,
		GrantedAt: time.Now(), CanDelegate: true, DelegationLimit: 0}
	f.repo.grants[drained.ID] = drained
	_, err = f.service.Delegate(ctx, 4, DelegateRequest{UserID: 2, Code: "reports.view", Reason: "spent"})
	require.ErrorIs(t, err, ErrDelegationExhausted)
}

func TestDelegateRejectsSuspendedDelegator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{
		UserID: 1, Code: "reports.view", Reason: "lead",
		CanDelegate: true, DelegationLimit: 2,
	}, nil)
	require.NoError(t, err)

	// Suspension empties the effective set, so the stored grant must not be
	// delegable either.
	u := f.users.users[1]
	u.Status = users.StatusSuspended
	f.users.users[1] = u

	_, err = f.service.Delegate(ctx, 1, DelegateRequest{UserID: 2, Code: "reports.view", Reason: "cover"})
	require.ErrorIs(t, err, ErrNotDelegable)

	eff, err := f.service.Resolve(ctx, 2)
	require.NoError(t, err)
	require.False(t, eff.Has("reports.view"))
}

func TestCheckReportsStepUpState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// User 2 enrols later; give them the gated permission first.
	u := f.users.users[2]
	u.TwoFactorEnabled = true
	f.users.users[2] = u
	_, err := f.service.Grant(ctx, GrantRequest{UserID: 2, Code: "ledger.close", Reason: "close"}, nil)
	require.NoError(t, err)
	u.TwoFactorEnabled = false
	f.users.users[2] = u

	decision, err := f.service.Check(ctx, 2, "ledger.close")
	require.NoError(t, err)
	require.True(t, decision.Held)
	require.True(t, decision.Requires2FA)
	require.False(t, decision.TwoFactorSatisfied)
	require.False(t, decision.Exercisable())
}

func TestCheckAdminBypassesRiskGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decision, err := f.service.Check(ctx, 3, "vault.admin")
	require.NoError(t, err)
	require.True(t, decision.Held)
	require.True(t, decision.Exercisable())
}

func TestHasAnyUnknownUserHoldsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	held, err := f.service.HasAny(ctx, 99, "reports.view")
	require.NoError(t, err)
	require.False(t, held)
}
