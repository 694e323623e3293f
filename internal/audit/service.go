package audit

import (
	"context"
	"fmt"
)

// RepositoryPort defines the audit queries the service needs.
type RepositoryPort interface {
	List(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
}

// Service coordinates audit trail reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds a new audit service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Timeline returns a page of audit entries matching the filters.
func (s *Service) Timeline(ctx context.Context, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	entries, err := s.repo.List(ctx, f, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(entries) > pageSize
	if hasNext {
		entries = entries[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Entries: entries, Paging: paging}, nil
}

// QueryForUser returns the audit history of a single user, newest first.
func (s *Service) QueryForUser(ctx context.Context, userID int64) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.List(ctx, Filters{UserID: userID}, maxPageSize, 0)
}

// QueryForPermission returns the audit history of a single permission.
func (s *Service) QueryForPermission(ctx context.Context, permissionID int64) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.List(ctx, Filters{PermissionID: permissionID}, maxPageSize, 0)
}
