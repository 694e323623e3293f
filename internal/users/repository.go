package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("users: not found")

// Repository provides PostgreSQL backed persistence for user accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, access_level, two_factor_enabled, status, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.AccessLevel, &u.TwoFactorEnabled, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	if r == nil || r.pool == nil {
		return User{}, fmt.Errorf("users repo not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// List returns all users ordered by ID.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("users repo not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// UpdateAccess applies role, access level, status, and 2FA changes.
func (r *Repository) UpdateAccess(ctx context.Context, id int64, req UpdateAccessRequest) (User, error) {
	if r == nil || r.pool == nil {
		return User{}, fmt.Errorf("users repo not initialised")
	}
	const query = `
UPDATE users SET
	role = COALESCE($2, role),
	access_level = COALESCE($3, access_level),
	status = COALESCE($4, status),
	two_factor_enabled = COALESCE($5, two_factor_enabled),
	updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns
	row := r.pool.QueryRow(ctx, query, id, req.Role, req.AccessLevel, req.Status, req.TwoFactorEnabled)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
