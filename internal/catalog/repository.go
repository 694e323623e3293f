package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/steward-iam/steward/internal/platform/db"
	"github.com/steward-iam/steward/internal/users"
)

// Repository provides PostgreSQL backed persistence for the permission catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionColumns = `id, code, name, description, category, module, parent_id, path,
	risk_level, requires_2fa, requires_approval, default_for_roles, excluded_from_roles,
	min_access_level, dependencies, conflicts, is_active, is_system, created_at, updated_at`

func scanPermission(row pgx.Row) (Permission, error) {
	var (
		p             Permission
		defaultRoles  []string
		excludedRoles []string
	)
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.Module,
		&p.ParentID, &p.Path, &p.RiskLevel, &p.Requires2FA, &p.RequiresApproval,
		&defaultRoles, &excludedRoles, &p.MinAccessLevel, &p.Dependencies, &p.Conflicts,
		&p.IsActive, &p.IsSystem, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permission{}, err
	}
	p.DefaultForRoles = toRoles(defaultRoles)
	p.ExcludedRoles = toRoles(excludedRoles)
	return p, nil
}

func toRoles(raw []string) []users.Role {
	roles := make([]users.Role, 0, len(raw))
	for _, r := range raw {
		roles = append(roles, users.Role(r))
	}
	return roles
}

func fromRoles(roles []users.Role) []string {
	raw := make([]string, 0, len(roles))
	for _, r := range roles {
		raw = append(raw, string(r))
	}
	return raw
}

// GetByCode fetches a permission by its stable code.
func (r *Repository) GetByCode(ctx context.Context, code string) (Permission, error) {
	if r == nil || r.pool == nil {
		return Permission{}, fmt.Errorf("catalog repo not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE code = $1`, code)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// ListAll returns every catalog entry, active or not, ordered by code.
func (r *Repository) ListAll(ctx context.Context) ([]Permission, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("catalog repo not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Create inserts a catalog entry and materializes its path in one transaction.
func (r *Repository) Create(ctx context.Context, p Permission) (Permission, error) {
	if r == nil || r.pool == nil {
		return Permission{}, fmt.Errorf("catalog repo not initialised")
	}
	var created Permission
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `
INSERT INTO permissions (code, name, description, category, module, parent_id, path,
	risk_level, requires_2fa, requires_approval, default_for_roles, excluded_from_roles,
	min_access_level, dependencies, conflicts, is_active, is_system)
VALUES ($1, $2, $3, $4, $5, $6, '', $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING ` + permissionColumns
		row := tx.QueryRow(ctx, insert,
			p.Code, p.Name, p.Description, p.Category, p.Module, p.ParentID,
			p.RiskLevel, p.Requires2FA, p.RequiresApproval,
			fromRoles(p.DefaultForRoles), fromRoles(p.ExcludedRoles),
			p.MinAccessLevel, p.Dependencies, p.Conflicts, p.IsActive, p.IsSystem)
		inserted, err := scanPermission(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return err
		}
		const setPath = `
UPDATE permissions SET path = COALESCE((SELECT path FROM permissions WHERE id = $2), '') || '/' || $1
WHERE id = $1 RETURNING path`
		if err := tx.QueryRow(ctx, setPath, inserted.ID, p.ParentID).Scan(&inserted.Path); err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	return created, nil
}

// Update replaces the mutable attributes of a catalog entry. The code column
// is never touched.
func (r *Repository) Update(ctx context.Context, p Permission) (Permission, error) {
	if r == nil || r.pool == nil {
		return Permission{}, fmt.Errorf("catalog repo not initialised")
	}
	const query = `
UPDATE permissions SET
	name = $2, description = $3, category = $4, module = $5, parent_id = $6, path = $7,
	risk_level = $8, requires_2fa = $9, requires_approval = $10,
	default_for_roles = $11, excluded_from_roles = $12, min_access_level = $13,
	dependencies = $14, conflicts = $15, is_active = $16, updated_at = NOW()
WHERE id = $1
RETURNING ` + permissionColumns
	row := r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Description, p.Category, p.Module,
		p.ParentID, p.Path, p.RiskLevel, p.Requires2FA, p.RequiresApproval,
		fromRoles(p.DefaultForRoles), fromRoles(p.ExcludedRoles), p.MinAccessLevel,
		p.Dependencies, p.Conflicts, p.IsActive)
	updated, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return updated, nil
}

// SetPath rewrites the materialized path of a single entry. Used when a
// parent change cascades through a subtree.
func (r *Repository) SetPath(ctx context.Context, id int64, path string) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("catalog repo not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET path = $2, updated_at = NOW() WHERE id = $1`, id, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate retires a permission definition without removing it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("catalog repo not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
