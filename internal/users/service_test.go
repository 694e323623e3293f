package users

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	users map[int64]User
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryUserRepo) UpdateAccess(ctx context.Context, id int64, req UpdateAccessRequest) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.AccessLevel != nil {
		u.AccessLevel = *req.AccessLevel
	}
	if req.Status != nil {
		u.Status = *req.Status
	}
	if req.TwoFactorEnabled != nil {
		u.TwoFactorEnabled = *req.TwoFactorEnabled
	}
	r.users[id] = u
	return u, nil
}

func TestUpdateAccessAppliesPartialChanges(t *testing.T) {
	repo := &memoryUserRepo{users: map[int64]User{
		1: {ID: 1, Role: RoleSalesManager, AccessLevel: 3, Status: StatusActive},
	}}
	svc := NewService(repo, slog.Default())

	level := 4
	suspended := StatusSuspended
	updated, err := svc.UpdateAccess(context.Background(), 1, UpdateAccessRequest{
		AccessLevel: &level,
		Status:      &suspended,
	}, 99)
	require.NoError(t, err)
	require.Equal(t, 4, updated.AccessLevel)
	require.Equal(t, StatusSuspended, updated.Status)
	require.Equal(t, RoleSalesManager, updated.Role)
}

func TestUpdateAccessRejectsUnknownEnumValues(t *testing.T) {
	repo := &memoryUserRepo{users: map[int64]User{1: {ID: 1, Role: RoleAdmin, Status: StatusActive}}}
	svc := NewService(repo, slog.Default())

	badRole := Role("INTERN")
	_, err := svc.UpdateAccess(context.Background(), 1, UpdateAccessRequest{Role: &badRole}, 99)
	require.ErrorIs(t, err, ErrInvalidRole)

	badStatus := Status("frozen")
	_, err = svc.UpdateAccess(context.Background(), 1, UpdateAccessRequest{Status: &badStatus}, 99)
	require.ErrorIs(t, err, ErrInvalidStatus)

	// Enum checks run before the repository is touched.
	require.Equal(t, RoleAdmin, repo.users[1].Role)
}

func TestUpdateAccessUnknownUser(t *testing.T) {
	svc := NewService(&memoryUserRepo{users: map[int64]User{}}, slog.Default())
	_, err := svc.UpdateAccess(context.Background(), 7, UpdateAccessRequest{}, 99)
	require.ErrorIs(t, err, ErrNotFound)
}
