package grants

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steward-iam/steward/internal/catalog"
	"github.com/steward-iam/steward/internal/users"
)

// CatalogPort is the slice of the permission catalog the engine reads.
type CatalogPort interface {
	GetByCode(ctx context.Context, code string) (catalog.Permission, error)
	GetByID(ctx context.Context, id int64) (catalog.Permission, error)
	ListActive(ctx context.Context) ([]catalog.Permission, error)
}

// UserPort supplies user accounts as the identity layer sees them.
type UserPort interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// Effective is the set of permission codes a user currently holds. The admin
// role resolves to a sentinel that satisfies every membership check; callers
// must not depend on iteration order.
type Effective struct {
	all   bool
	codes map[string]struct{}
}

// AllPermissions returns the superuser sentinel.
func AllPermissions() Effective {
	return Effective{all: true}
}

// All reports whether this is the superuser sentinel.
func (e Effective) All() bool {
	return e.all
}

// Has reports whether the set contains the code.
func (e Effective) Has(code string) bool {
	if e.all {
		return true
	}
	_, ok := e.codes[strings.ToLower(code)]
	return ok
}

// HasAny reports whether the set contains at least one of the codes.
func (e Effective) HasAny(codes ...string) bool {
	for _, code := range codes {
		if e.Has(code) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every code.
func (e Effective) HasAll(codes ...string) bool {
	for _, code := range codes {
		if !e.Has(code) {
			return false
		}
	}
	return true
}

// Codes returns the members in sorted order for stable output. Empty for the
// superuser sentinel.
func (e Effective) Codes() []string {
	list := make([]string, 0, len(e.codes))
	for code := range e.codes {
		list = append(list, code)
	}
	sort.Strings(list)
	return list
}

// Resolver computes the effective permission set: role defaults unioned with
// direct grants. Grants are strictly additive over role defaults; the only
// way to take a default away from one user is changing their role or access
// level.
type Resolver struct {
	catalog CatalogPort
	repo    RepositoryPort
	now     func() time.Time
}

// NewResolver constructs a resolver.
func NewResolver(catalogPort CatalogPort, repo RepositoryPort) *Resolver {
	return &Resolver{catalog: catalogPort, repo: repo, now: time.Now}
}

// Resolve computes the effective permission set for a user.
func (r *Resolver) Resolve(ctx context.Context, user users.User) (Effective, error) {
	if user.Status != users.StatusActive {
		return Effective{codes: map[string]struct{}{}}, nil
	}
	if user.IsAdmin() {
		return AllPermissions(), nil
	}

	active, err := r.catalog.ListActive(ctx)
	if err != nil {
		return Effective{}, fmt.Errorf("grants: resolve: %w", err)
	}
	byID := make(map[int64]catalog.Permission, len(active))
	codes := make(map[string]struct{})
	for _, p := range active {
		byID[p.ID] = p
		// Role defaults honour the minimum access level gate.
		if p.DefaultFor(user.Role) && p.MinAccessLevel <= user.AccessLevel {
			codes[strings.ToLower(p.Code)] = struct{}{}
		}
	}

	direct, err := r.repo.ListActiveForUser(ctx, user.ID, r.now())
	if err != nil {
		return Effective{}, fmt.Errorf("grants: resolve: %w", err)
	}
	for _, g := range direct {
		// Direct grants are explicit overrides: honoured regardless of the
		// user's current access level, but only while the permission
		// definition itself remains active.
		if p, ok := byID[g.PermissionID]; ok {
			codes[strings.ToLower(p.Code)] = struct{}{}
		}
	}

	return Effective{codes: codes}, nil
}

// HasPermission reports whether the user holds the permission code.
func (r *Resolver) HasPermission(ctx context.Context, user users.User, code string) (bool, error) {
	eff, err := r.Resolve(ctx, user)
	if err != nil {
		return false, err
	}
	return eff.Has(code), nil
}
