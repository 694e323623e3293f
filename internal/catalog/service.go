package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	GetByCode(ctx context.Context, code string) (Permission, error)
	ListAll(ctx context.Context) ([]Permission, error)
	Create(ctx context.Context, p Permission) (Permission, error)
	Update(ctx context.Context, p Permission) (Permission, error)
	SetPath(ctx context.Context, id int64, path string) error
	Deactivate(ctx context.Context, id int64) error
}

// Service orchestrates catalog reads and administrative writes. Reads go
// through the Redis snapshot cache; writes validate the permission graph and
// invalidate the cache.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs a catalog service.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

const snapshotKey = "catalog:all"

func (s *Service) snapshot(ctx context.Context) ([]Permission, error) {
	var list []Permission
	err := s.cache.FetchJSON(ctx, snapshotKey, &list, func(ctx context.Context) (any, error) {
		return s.repo.ListAll(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: load snapshot: %w", err)
	}
	return list, nil
}

func indexByID(list []Permission) map[int64]Permission {
	byID := make(map[int64]Permission, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	return byID
}

// GetByCode fetches a permission by its stable code.
func (s *Service) GetByCode(ctx context.Context, code string) (Permission, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return Permission{}, err
	}
	for _, p := range list {
		if p.Code == code {
			return p, nil
		}
	}
	return Permission{}, ErrNotFound
}

// GetByID fetches a permission by ID.
func (s *Service) GetByID(ctx context.Context, id int64) (Permission, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return Permission{}, err
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return Permission{}, ErrNotFound
}

// ListActive returns every active permission definition.
func (s *Service) ListActive(ctx context.Context) ([]Permission, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]Permission, 0, len(list))
	for _, p := range list {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// ListAll returns every permission definition, active or not.
func (s *Service) ListAll(ctx context.Context) ([]Permission, error) {
	return s.snapshot(ctx)
}

// Children returns the direct children of a permission in the organizational
// tree. Tree position carries no inheritance semantics.
func (s *Service) Children(ctx context.Context, id int64) ([]Permission, error) {
	list, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var children []Permission
	for _, p := range list {
		if p.ParentID != nil && *p.ParentID == id {
			children = append(children, p)
		}
	}
	return children, nil
}

// DependenciesOf returns the dependency edge set of a permission.
func (s *Service) DependenciesOf(ctx context.Context, id int64) ([]int64, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Dependencies, nil
}

// ConflictsOf returns the conflict edge set of a permission.
func (s *Service) ConflictsOf(ctx context.Context, id int64) ([]int64, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Conflicts, nil
}

// Create adds a permission definition after validating the graph invariants.
func (s *Service) Create(ctx context.Context, req CreatePermissionRequest) (Permission, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return Permission{}, fmt.Errorf("catalog: permission code required")
	}
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return Permission{}, err
	}
	known := indexByID(existing)
	if err := validateEdges(0, req.Dependencies, req.Conflicts, known); err != nil {
		return Permission{}, err
	}
	if err := validateParent(0, req.ParentID, known); err != nil {
		return Permission{}, err
	}
	created, err := s.repo.Create(ctx, Permission{
		Code:             code,
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		Category:         req.Category,
		Module:           req.Module,
		ParentID:         req.ParentID,
		RiskLevel:        req.RiskLevel,
		Requires2FA:      req.Requires2FA,
		RequiresApproval: req.RequiresApproval,
		DefaultForRoles:  req.DefaultForRoles,
		ExcludedRoles:    req.ExcludedRoles,
		MinAccessLevel:   req.MinAccessLevel,
		Dependencies:     req.Dependencies,
		Conflicts:        req.Conflicts,
		IsActive:         true,
		IsSystem:         req.IsSystem,
	})
	if err != nil {
		return Permission{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// Update modifies a permission definition. Codes are immutable; graph
// invariants are re-validated against the proposed state.
func (s *Service) Update(ctx context.Context, id int64, req UpdatePermissionRequest) (Permission, error) {
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return Permission{}, err
	}
	known := indexByID(existing)
	current, ok := known[id]
	if !ok {
		return Permission{}, ErrNotFound
	}

	next := current
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Module != nil {
		next.Module = *req.Module
	}
	if req.ParentID != nil {
		next.ParentID = req.ParentID
	}
	if req.RiskLevel != nil {
		next.RiskLevel = *req.RiskLevel
	}
	if req.Requires2FA != nil {
		next.Requires2FA = *req.Requires2FA
	}
	if req.RequiresApproval != nil {
		next.RequiresApproval = *req.RequiresApproval
	}
	if req.DefaultForRoles != nil {
		next.DefaultForRoles = *req.DefaultForRoles
	}
	if req.ExcludedRoles != nil {
		next.ExcludedRoles = *req.ExcludedRoles
	}
	if req.MinAccessLevel != nil {
		next.MinAccessLevel = *req.MinAccessLevel
	}
	if req.Dependencies != nil {
		next.Dependencies = *req.Dependencies
	}
	if req.Conflicts != nil {
		next.Conflicts = *req.Conflicts
	}

	if err := validateEdges(id, next.Dependencies, next.Conflicts, known); err != nil {
		return Permission{}, err
	}
	if err := validateParent(id, next.ParentID, known); err != nil {
		return Permission{}, err
	}
	parentChanged := !equalParent(current.ParentID, next.ParentID)
	if parentChanged {
		next.Path = materializePath(id, next.ParentID, known)
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return Permission{}, err
	}
	if parentChanged {
		known[id] = updated
		if err := s.rewriteSubtreePaths(ctx, id, known); err != nil {
			return Permission{}, err
		}
	}
	s.invalidate(ctx)
	return updated, nil
}

// Deactivate retires a permission definition. System permissions cannot be
// retired.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsSystem {
		return ErrSystemPermission
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// rewriteSubtreePaths recomputes materialized paths for every descendant of
// the moved node, walking the tree top-down.
func (s *Service) rewriteSubtreePaths(ctx context.Context, rootID int64, known map[int64]Permission) error {
	children := make(map[int64][]int64)
	for id, p := range known {
		if p.ParentID != nil {
			children[*p.ParentID] = append(children[*p.ParentID], id)
		}
	}
	queue := append([]int64(nil), children[rootID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		node := known[id]
		node.Path = materializePath(id, node.ParentID, known)
		known[id] = node
		if err := s.repo.SetPath(ctx, id, node.Path); err != nil {
			return err
		}
		queue = append(queue, children[id]...)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("catalog cache bump", slog.Any("error", err))
	}
}

func equalParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
