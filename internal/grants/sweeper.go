package grants

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper retires grants whose expiry has passed. Each grant is swept in its
// own transaction so one bad row never blocks the batch, and the mark is
// guarded so re-running a sweep over the same window writes nothing twice.
type Sweeper struct {
	repo    RepositoryPort
	metrics MetricsPort
	logger  *slog.Logger
}

// NewSweeper constructs a sweeper.
func NewSweeper(repo RepositoryPort, logger *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, logger: logger}
}

// SetMetrics attaches lifecycle counters. Optional.
func (s *Sweeper) SetMetrics(m MetricsPort) {
	s.metrics = m
}

// SweepExpired marks every overdue grant expired and records an audit entry
// per sweep. Returns the number of grants retired.
func (s *Sweeper) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, g := range overdue {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		grant := g
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			marked, err := tx.MarkExpired(ctx, grant.ID, now)
			if err != nil {
				return err
			}
			if !marked {
				// Revoked, or another sweep got here first.
				return nil
			}
			if err := tx.InsertAudit(ctx, expiryEntry(grant, now)); err != nil {
				return err
			}
			swept++
			return nil
		})
		if err != nil {
			s.logger.Error("sweep grant",
				slog.String("grant_id", grant.ID.String()),
				slog.Int64("user_id", grant.UserID),
				slog.Any("error", err))
		}
	}

	if swept > 0 {
		if s.metrics != nil {
			s.metrics.CountSwept(swept)
		}
		s.logger.Info("expired grants swept",
			slog.Int("count", swept),
			slog.Time("as_of", now))
	}
	return swept, nil
}
