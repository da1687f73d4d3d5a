package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
)

const (
	defaultStaleAfter = 30 * time.Minute
	recoveryBatch     = 100
	staleRunMessage   = "processing timed out"
)

type StaleDocumentRepo interface {
	ListStaleProcessing(ctx context.Context, before int64, limit uint) ([]model.Document, error)
	MarkFailed(ctx context.Context, tenantID, docID, errMsg string, mtime int64) error
}

type StaleTaskRepo interface {
	ListByStatusBefore(ctx context.Context, status model.TaskStatus, before int64, limit uint) ([]model.IngestTask, error)
	Finish(ctx context.Context, taskID string, status model.TaskStatus, errMsg string, chunkCount int, mtime int64) error
}

// IngestRecoveryJob fails documents and tasks left in processing or running
// by a crashed or stuck worker, so they can be processed again.
type IngestRecoveryJob struct {
	docs       StaleDocumentRepo
	tasks      StaleTaskRepo
	staleAfter time.Duration
	now        func() time.Time
}

func NewIngestRecoveryJob(docs StaleDocumentRepo, tasks StaleTaskRepo, staleAfter time.Duration) *IngestRecoveryJob {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &IngestRecoveryJob{docs: docs, tasks: tasks, staleAfter: staleAfter, now: time.Now}
}

func (j *IngestRecoveryJob) Name() string {
	return "ingest_recovery"
}

func (j *IngestRecoveryJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	before := j.now().Add(-j.staleAfter).Unix()

	docs, err := j.docs.ListStaleProcessing(ctx, before, recoveryBatch)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := j.docs.MarkFailed(ctx, doc.TenantID, doc.ID, staleRunMessage, timeutil.NowUnix()); err != nil {
			logger.Warn("recover stale document failed", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		logger.Info("stale document marked failed", zap.String("tenant_id", doc.TenantID), zap.String("document_id", doc.ID))
	}

	tasks, err := j.tasks.ListByStatusBefore(ctx, model.TaskStatusRunning, before, recoveryBatch)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := j.tasks.Finish(ctx, task.ID, model.TaskStatusFailed, staleRunMessage, 0, timeutil.NowUnix()); err != nil {
			logger.Warn("recover stale task failed", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		logger.Info("stale task marked failed", zap.String("task_id", task.ID), zap.String("document_id", task.DocumentID))
	}
	return nil
}
