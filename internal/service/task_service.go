package service

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 64
	redispatchBatch  = 100
)

type TaskConfig struct {
	Workers   int
	QueueSize int
}

// TaskService runs ingestion in the background. Every run has a persisted
// execution record that moves pending -> running -> succeeded|failed.
type TaskService struct {
	tasks   TaskRepository
	docs    DocumentRepository
	runner  Processor
	queue   chan model.IngestTask
	workers int

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewTaskService(tasks TaskRepository, docs DocumentRepository, runner Processor, cfg TaskConfig) *TaskService {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &TaskService{
		tasks:   tasks,
		docs:    docs,
		runner:  runner,
		queue:   make(chan model.IngestTask, cfg.QueueSize),
		workers: cfg.Workers,
	}
}

func (s *TaskService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work(ctx, i)
	}
	logutil.GetLogger(ctx).Info("ingest workers started", zap.Int("workers", s.workers))
}

// Stop cancels the workers and waits for in-flight runs to return. Queued
// tasks stay pending and are picked up again by Redispatch.
func (s *TaskService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.started = false
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// Enqueue records a pending ingestion task for the document and hands it to
// the worker pool. A full queue leaves the task pending.
func (s *TaskService) Enqueue(ctx context.Context, tenantID, docID string) (*model.IngestTask, error) {
	doc, err := s.docs.GetByID(ctx, tenantID, docID)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanStartProcessing() {
		return nil, appErr.ErrConflict
	}
	now := timeutil.NowUnix()
	task := &model.IngestTask{
		ID:         newID(),
		TenantID:   tenantID,
		DocumentID: docID,
		Status:     model.TaskStatusPending,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	if !s.dispatch(*task) {
		logutil.GetLogger(ctx).Warn("ingest queue full, task left pending",
			zap.String("task_id", task.ID), zap.String("document_id", docID))
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, tenantID, taskID string) (*model.IngestTask, error) {
	return s.tasks.Get(ctx, tenantID, taskID)
}

// Redispatch re-queues pending tasks last touched before now-olderThan.
func (s *TaskService) Redispatch(ctx context.Context, olderThan time.Duration) (int, error) {
	before := time.Now().Add(-olderThan).Unix()
	pending, err := s.tasks.ListByStatusBefore(ctx, model.TaskStatusPending, before, redispatchBatch)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, task := range pending {
		if !s.dispatch(task) {
			break
		}
		count++
	}
	return count, nil
}

func (s *TaskService) dispatch(task model.IngestTask) bool {
	select {
	case s.queue <- task:
		return true
	default:
		return false
	}
}

func (s *TaskService) work(ctx context.Context, idx int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.queue:
			s.run(ctx, task, idx)
		}
	}
}

func (s *TaskService) run(ctx context.Context, task model.IngestTask, idx int) {
	logger := logutil.GetLogger(ctx).With(
		zap.Int("worker", idx),
		zap.String("task_id", task.ID),
		zap.String("tenant_id", task.TenantID),
		zap.String("document_id", task.DocumentID),
	)
	ok, err := s.tasks.UpdateStatusIf(ctx, task.ID, model.TaskStatusPending, model.TaskStatusRunning, timeutil.NowUnix())
	if err != nil {
		logger.Error("claim ingest task failed", zap.Error(err))
		return
	}
	if !ok {
		logger.Debug("ingest task already claimed")
		return
	}
	count, runErr := s.runner.Process(ctx, task.TenantID, task.DocumentID)
	status, msg := model.TaskStatusSucceeded, ""
	if runErr != nil {
		status, msg = model.TaskStatusFailed, runErr.Error()
	}
	if err := s.tasks.Finish(context.WithoutCancel(ctx), task.ID, status, msg, count, timeutil.NowUnix()); err != nil {
		logger.Error("record ingest task result failed", zap.Error(err))
		return
	}
	logger.Info("ingest task finished", zap.String("status", string(status)), zap.Int("chunk_count", count))
}
