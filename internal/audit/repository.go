package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations the repository needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so audit writes can share the
// transaction of the mutation they record.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence for the audit trail.
// The table is append-only: there are no update or delete operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends an audit entry using the supplied querier. Callers pass
// their open transaction so audit and mutation commit atomically.
func (r *Repository) Insert(ctx context.Context, q Querier, e Entry) error {
	if e.UserID == 0 || e.PermissionID == 0 || e.Action == "" {
		return errors.New("audit: entry requires user, permission, and action")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("audit: marshal meta: %w", err)
	}
	const query = `
INSERT INTO audit_entries (id, user_id, permission_id, action, actor_id, reason, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))`
	_, err = q.Exec(ctx, query, e.ID, e.UserID, e.PermissionID, string(e.Action), e.ActorID, e.Reason, meta, nullableTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// List returns entries matching the filters, newest first.
func (r *Repository) List(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("audit repo not initialised")
	}
	const query = `
SELECT id, user_id, permission_id, action, actor_id, reason, meta, occurred_at
FROM audit_entries
WHERE ($1::BIGINT = 0 OR user_id = $1)
  AND ($2::BIGINT = 0 OR permission_id = $2)
  AND ($3::TEXT = '' OR action = $3)
ORDER BY occurred_at DESC, id
LIMIT $4 OFFSET $5`
	rows, err := r.pool.Query(ctx, query, f.UserID, f.PermissionID, string(f.Action), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			action string
			meta   []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.PermissionID, &action, &e.ActorID, &e.Reason, &meta, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("audit: unmarshal meta: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
