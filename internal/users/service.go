package users

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrInvalidRole indicates a role outside the closed enumeration.
	ErrInvalidRole = errors.New("users: invalid role")
	// ErrInvalidStatus indicates an unknown account status.
	ErrInvalidStatus = errors.New("users: invalid status")
)

// RepositoryPort defines data access methods for user accounts.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateAccess(ctx context.Context, id int64, req UpdateAccessRequest) (User, error)
}

// Service handles user administration logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateAccess changes role, access level, status, or 2FA enrollment for a
// user. The change is logged with the acting administrator for traceability.
func (s *Service) UpdateAccess(ctx context.Context, id int64, req UpdateAccessRequest, actorID int64) (User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	if req.Status != nil && !req.Status.Valid() {
		return User{}, ErrInvalidStatus
	}
	updated, err := s.repo.UpdateAccess(ctx, id, req)
	if err != nil {
		return User{}, err
	}
	if s.logger != nil {
		s.logger.Info("user access updated",
			slog.Int64("user_id", id),
			slog.Int64("actor_id", actorID),
			slog.String("role", string(updated.Role)),
			slog.Int("access_level", updated.AccessLevel),
			slog.String("status", string(updated.Status)))
	}
	return updated, nil
}
