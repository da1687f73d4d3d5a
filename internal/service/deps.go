package service

import (
	"context"
	"io"

	"github.com/xxxsen/docrag/internal/model"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error)
	List(ctx context.Context, tenantID string, limit, offset uint) ([]model.Document, error)
	StartProcessing(ctx context.Context, tenantID, docID string, mtime int64) error
	MarkReady(ctx context.Context, tenantID, docID string, chunkCount int, mtime int64) error
	MarkFailed(ctx context.Context, tenantID, docID, errMsg string, mtime int64) error
	Delete(ctx context.Context, tenantID, docID string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.IngestTask) error
	Get(ctx context.Context, tenantID, taskID string) (*model.IngestTask, error)
	UpdateStatusIf(ctx context.Context, taskID string, from, to model.TaskStatus, mtime int64) (bool, error)
	Finish(ctx context.Context, taskID string, status model.TaskStatus, errMsg string, chunkCount int, mtime int64) error
	ListByStatusBefore(ctx context.Context, status model.TaskStatus, before int64, limit uint) ([]model.IngestTask, error)
}

type MessageLogRepository interface {
	Create(ctx context.Context, item *model.MessageLog) error
}

// TextExtractor is satisfied by *extract.Registry.
type TextExtractor interface {
	Extract(ctx context.Context, kind string, src io.ReadSeeker) (string, error)
}

// Processor runs ingestion for one document.
type Processor interface {
	Process(ctx context.Context, tenantID, docID string) (int, error)
}
