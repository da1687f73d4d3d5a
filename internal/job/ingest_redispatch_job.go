package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultPendingAge = time.Minute

type Redispatcher interface {
	Redispatch(ctx context.Context, olderThan time.Duration) (int, error)
}

// IngestRedispatchJob hands pending tasks that missed the queue back to the
// worker pool.
type IngestRedispatchJob struct {
	tasks     Redispatcher
	olderThan time.Duration
}

func NewIngestRedispatchJob(tasks Redispatcher, olderThan time.Duration) *IngestRedispatchJob {
	if olderThan <= 0 {
		olderThan = defaultPendingAge
	}
	return &IngestRedispatchJob{tasks: tasks, olderThan: olderThan}
}

func (j *IngestRedispatchJob) Name() string {
	return "ingest_redispatch"
}

func (j *IngestRedispatchJob) Run(ctx context.Context) error {
	n, err := j.tasks.Redispatch(ctx, j.olderThan)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("pending ingest tasks redispatched", zap.Int("count", n))
	}
	return nil
}
