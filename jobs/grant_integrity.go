package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/parley-forum/parley/internal/jobs"
)

// RunGrantIntegritySweep removes grant rows attached to public
// categories. Privacy flips purge these inline; the sweep is the
// backstop for anything that slipped through. Returns the number of
// rows removed.
func RunGrantIntegritySweep(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (int64, error) {
	if pool == nil {
		return 0, nil
	}
	tag, err := pool.Exec(ctx, `
		DELETE FROM category_grants g
		USING categories c
		WHERE c.id = g.category_id AND NOT c.is_private`)
	if err != nil {
		if logger != nil {
			logger.Error("grant integrity sweep", slog.Any("error", err))
		}
		return 0, err
	}
	removed := tag.RowsAffected()
	if logger != nil && removed > 0 {
		logger.Warn("grant integrity sweep removed rows",
			slog.String("job", TaskGrantIntegrity),
			slog.Int64("removed", removed))
	}
	return removed, nil
}

// NewGrantIntegrityHandler wires the sweep into the worker mux.
func NewGrantIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskGrantIntegrity)
		removed, err := RunGrantIntegritySweep(ctx, pool, logger)
		metrics.AddPurgedGrants(int(removed))
		return tracker.End(err)
	}
}
