package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantIntegrity sweeps grant rows that survived a privacy flip.
	TaskGrantIntegrity = "grants:integrity"
	// TaskTopicStats refreshes the topic statistics view.
	TaskTopicStats = "topics:stats"
)

// NewGrantIntegrityTask constructs the integrity sweep task. It carries
// no payload; the sweep always covers every public category.
func NewGrantIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGrantIntegrity, nil)
}

// NewTopicStatsTask constructs the stats refresh task.
func NewTopicStatsTask() *asynq.Task {
	return asynq.NewTask(TaskTopicStats, nil)
}
