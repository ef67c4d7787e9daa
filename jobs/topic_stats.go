package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/parley-forum/parley/internal/jobs"
)

// RefreshTopicStats refreshes the per-topic reply and vote counters.
func RefreshTopicStats(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	if _, err := pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY topic_stats`); err != nil {
		if logger != nil {
			logger.Error("refresh topic_stats", slog.Any("error", err))
		}
		return err
	}
	if logger != nil {
		logger.Info("refreshed topic_stats", slog.String("job", TaskTopicStats))
	}
	return nil
}

// NewTopicStatsHandler wires the refresh into the worker mux.
func NewTopicStatsHandler(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTopicStats)
		return tracker.End(RefreshTopicStats(ctx, pool, logger))
	}
}
