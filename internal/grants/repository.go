package grants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/steward-iam/steward/internal/audit"
	"github.com/steward-iam/steward/internal/platform/db"
)

// TxRepository exposes the transactional grant mutations. Audit writes share
// the same transaction: a mutation without its audit entry never commits.
type TxRepository interface {
	FindActiveForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error)
	FindPendingForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error)
	Insert(ctx context.Context, g Grant) (Grant, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error
	Activate(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRejected(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	InsertAudit(ctx context.Context, e audit.Entry) error
}

// RepositoryPort defines data access methods for grants.
type RepositoryPort interface {
	FindActive(ctx context.Context, userID, permissionID int64) (*Grant, error)
	GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error)
	ListActiveForUser(ctx context.Context, userID int64, now time.Time) ([]Grant, error)
	ListExpired(ctx context.Context, now time.Time) ([]Grant, error)
	ListPending(ctx context.Context) ([]Grant, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Repository provides PostgreSQL backed persistence for grants.
type Repository struct {
	pool  *pgxpool.Pool
	audit *audit.Repository
}

// NewRepository constructs a grants repository.
func NewRepository(pool *pgxpool.Pool, auditRepo *audit.Repository) *Repository {
	return &Repository{pool: pool, audit: auditRepo}
}

const grantColumns = `id, user_id, permission_id, status, granted_by, granted_at, grant_reason,
	expires_at, can_delegate, delegation_limit, conditions, revoked_at, revoked_by, revoke_reason, swept_at`

func scanGrant(row pgx.Row) (Grant, error) {
	var (
		g      Grant
		status string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.PermissionID, &status, &g.GrantedBy, &g.GrantedAt,
		&g.GrantReason, &g.ExpiresAt, &g.CanDelegate, &g.DelegationLimit, &g.Conditions,
		&g.RevokedAt, &g.RevokedBy, &g.RevokeReason, &g.SweptAt)
	if err != nil {
		return Grant{}, err
	}
	g.Status = Status(status)
	return g, nil
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("grants repo not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, audit: r.audit})
	})
}

// FindActive returns the live grant for the pair, if any.
func (r *Repository) FindActive(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	return findActive(ctx, r.pool, userID, permissionID, false)
}

// GetGrant fetches a grant by ID.
func (r *Repository) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	return getGrant(ctx, r.pool, id)
}

// ListActiveForUser returns grants that confer permissions right now:
// active status, not revoked, not past expiry.
func (r *Repository) ListActiveForUser(ctx context.Context, userID int64, now time.Time) ([]Grant, error) {
	const query = `
SELECT ` + grantColumns + `
FROM user_permissions
WHERE user_id = $1 AND status = 'active' AND revoked_at IS NULL
  AND (expires_at IS NULL OR expires_at > $2)
ORDER BY granted_at`
	return listGrants(ctx, r.pool, query, userID, now)
}

// ListExpired returns grants past their expiry that the sweeper has not yet
// retired.
func (r *Repository) ListExpired(ctx context.Context, now time.Time) ([]Grant, error) {
	const query = `
SELECT ` + grantColumns + `
FROM user_permissions
WHERE status = 'active' AND revoked_at IS NULL
  AND expires_at IS NOT NULL AND expires_at <= $1 AND swept_at IS NULL
ORDER BY expires_at`
	return listGrants(ctx, r.pool, query, now)
}

// ListPending returns grants awaiting an approval decision.
func (r *Repository) ListPending(ctx context.Context) ([]Grant, error) {
	const query = `
SELECT ` + grantColumns + `
FROM user_permissions
WHERE status = 'pending' AND revoked_at IS NULL
ORDER BY granted_at`
	return listGrants(ctx, r.pool, query)
}

func listGrants(ctx context.Context, q audit.Querier, query string, args ...any) ([]Grant, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func findActive(ctx context.Context, q audit.Querier, userID, permissionID int64, forUpdate bool) (*Grant, error) {
	query := `
SELECT ` + grantColumns + `
FROM user_permissions
WHERE user_id = $1 AND permission_id = $2 AND status = 'active' AND revoked_at IS NULL`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	g, err := scanGrant(q.QueryRow(ctx, query, userID, permissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func getGrant(ctx context.Context, q audit.Querier, id uuid.UUID) (*Grant, error) {
	g, err := scanGrant(q.QueryRow(ctx, `SELECT `+grantColumns+` FROM user_permissions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

type txRepository struct {
	tx    pgx.Tx
	audit *audit.Repository
}

func (r *txRepository) FindActiveForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	return findActive(ctx, r.tx, userID, permissionID, true)
}

func (r *txRepository) FindPendingForUpdate(ctx context.Context, userID, permissionID int64) (*Grant, error) {
	const query = `
SELECT ` + grantColumns + `
FROM user_permissions
WHERE user_id = $1 AND permission_id = $2 AND status = 'pending' AND revoked_at IS NULL
ORDER BY granted_at
LIMIT 1
FOR UPDATE`
	g, err := scanGrant(r.tx.QueryRow(ctx, query, userID, permissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *txRepository) GetGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	return getGrant(ctx, r.tx, id)
}

func (r *txRepository) Insert(ctx context.Context, g Grant) (Grant, error) {
	const query = `
INSERT INTO user_permissions (id, user_id, permission_id, status, granted_by, granted_at,
	grant_reason, expires_at, can_delegate, delegation_limit, conditions)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), $7, $8, $9, $10, $11)
RETURNING ` + grantColumns
	row := r.tx.QueryRow(ctx, query, g.ID, g.UserID, g.PermissionID, string(g.Status),
		g.GrantedBy, nullableTime(g.GrantedAt), g.GrantReason, g.ExpiresAt,
		g.CanDelegate, g.DelegationLimit, g.Conditions)
	inserted, err := scanGrant(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Grant{}, errDuplicateActive
		}
		return Grant{}, err
	}
	return inserted, nil
}

func (r *txRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error {
	const query = `
UPDATE user_permissions SET revoked_at = $2, revoked_by = $3, revoke_reason = $4
WHERE id = $1 AND revoked_at IS NULL`
	tag, err := r.tx.Exec(ctx, query, id, at, by, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `
UPDATE user_permissions SET status = 'active', granted_at = $2
WHERE id = $1 AND status = 'pending' AND revoked_at IS NULL`
	tag, err := r.tx.Exec(ctx, query, id, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errDuplicateActive
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *txRepository) MarkRejected(ctx context.Context, id uuid.UUID, at time.Time, by *int64, reason string) error {
	const query = `
UPDATE user_permissions SET revoked_at = $2, revoked_by = $3, revoke_reason = $4
WHERE id = $1 AND status = 'pending' AND revoked_at IS NULL`
	tag, err := r.tx.Exec(ctx, query, id, at, by, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *txRepository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	const query = `
UPDATE user_permissions SET status = 'expired', swept_at = $2
WHERE id = $1 AND status = 'active' AND swept_at IS NULL`
	tag, err := r.tx.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *txRepository) InsertAudit(ctx context.Context, e audit.Entry) error {
	return r.audit.Insert(ctx, r.tx, e)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
