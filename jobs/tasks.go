package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/steward-iam/steward/internal/grants"
	jobmetrics "github.com/steward-iam/steward/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSweepExpired retires grants whose expiry has passed.
	TaskTypeSweepExpired = "grants:sweep"
	// TaskTypeAccessChange fans a grant or revoke event out to notification
	// channels.
	TaskTypeAccessChange = "notify:access_change"
)

// NewSweepTask constructs the expiry sweep task. The payload is empty: the
// sweep always runs against the clock at execution time.
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSweepExpired, nil)
}

// NewAccessChangeTask constructs a notification task for an access event.
func NewAccessChangeTask(event grants.AccessEvent) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessChange, data), nil
}

// NewSweepHandler processes TaskTypeSweepExpired tasks.
func NewSweepHandler(sweeper *grants.Sweeper, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("grants_sweep")
		swept, err := sweeper.SweepExpired(ctx, time.Now())
		if err != nil {
			return tracker.End(err)
		}
		logger.Info("sweep task done", slog.Int("swept", swept))
		return tracker.End(nil)
	}
}

// NewAccessChangeHandler processes TaskTypeAccessChange tasks.
func NewAccessChangeHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event grants.AccessEvent
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		// Placeholder: deliver to email/chat channels once they exist.
		logger.Info("access change",
			slog.Int64("user_id", event.UserID),
			slog.String("code", event.Code),
			slog.String("action", event.Action))
		return nil
	}
}
