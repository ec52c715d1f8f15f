package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SessionPruner deletes expired auth tokens. auth.PGBackend satisfies it.
type SessionPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// JobRecorder receives job outcomes. observability.Metrics satisfies it.
type JobRecorder interface {
	JobRun(task string, err error)
}

// PruneSessionsJob removes expired rows from auth_sessions.
type PruneSessionsJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics JobRecorder
	Timeout time.Duration
}

// NewPruneSessionsJob wires dependencies for the prune handler.
func NewPruneSessionsJob(pruner SessionPruner, logger *slog.Logger, metrics JobRecorder) *PruneSessionsJob {
	return &PruneSessionsJob{Pruner: pruner, Logger: logger, Metrics: metrics, Timeout: time.Minute}
}

// Handle processes TaskPruneSessions tasks.
func (j *PruneSessionsJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("prune sessions: handler not configured")
	}
	payload, err := DecodePruneSessionsPayload(t)
	if err != nil {
		j.logger().Error("prune sessions", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.JobRun(TaskPruneSessions, resultErr)
		}
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	removed, err := j.Pruner.PruneExpired(ctx)
	if err != nil {
		logger.Error("prune expired sessions", slog.Any("error", err))
		return err
	}
	logger.Info("pruned expired sessions", slog.Int64("removed", removed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *PruneSessionsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
