package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/extract"
	"github.com/xxxsen/docrag/internal/filestore"
	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
	"github.com/xxxsen/docrag/internal/vectorstore"
)

type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
	AutoProcess bool
}

type DocumentService struct {
	docs    DocumentRepository
	files   filestore.Store
	vectors vectorstore.Store
	tasks   *TaskService
}

func NewDocumentService(docs DocumentRepository, files filestore.Store, vectors vectorstore.Store, tasks *TaskService) *DocumentService {
	return &DocumentService{docs: docs, files: files, vectors: vectors, tasks: tasks}
}

// Upload stores the file, records the document as uploaded and, when asked,
// enqueues processing. The returned task is nil unless processing was queued.
func (s *DocumentService) Upload(ctx context.Context, tenantID string, in UploadInput) (*model.Document, *model.IngestTask, error) {
	filename := strings.TrimSpace(filepath.Base(in.Filename))
	if filename == "" || filename == "." || in.Body == nil {
		return nil, nil, appErr.ErrInvalid
	}
	if !extract.Supported(in.ContentType, filename) {
		return nil, nil, fmt.Errorf("unsupported file type %q: %w", filename, appErr.ErrInvalid)
	}
	id := newID()
	key := tenantID + "/" + id + strings.ToLower(filepath.Ext(filename))
	if err := s.files.Save(ctx, key, in.Body, in.Size); err != nil {
		return nil, nil, fmt.Errorf("save upload: %w", err)
	}
	now := timeutil.NowUnix()
	doc := &model.Document{
		ID:          id,
		TenantID:    tenantID,
		Filename:    filename,
		StorageKey:  key,
		ContentType: in.ContentType,
		Size:        in.Size,
		Status:      model.DocumentStatusUploaded,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			logutil.GetLogger(ctx).Warn("remove orphan upload failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, nil, err
	}
	logutil.GetLogger(ctx).Info("document uploaded",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", id),
		zap.String("filename", filename),
		zap.Int64("size", in.Size),
	)
	if !in.AutoProcess {
		return doc, nil, nil
	}
	task, err := s.tasks.Enqueue(ctx, tenantID, id)
	if err != nil {
		return doc, nil, err
	}
	return doc, task, nil
}

func (s *DocumentService) Get(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, tenantID, docID)
}

func (s *DocumentService) List(ctx context.Context, tenantID string, limit, offset uint) ([]model.Document, error) {
	return s.docs.List(ctx, tenantID, limit, offset)
}

func (s *DocumentService) Process(ctx context.Context, tenantID, docID string) (*model.IngestTask, error) {
	return s.tasks.Enqueue(ctx, tenantID, docID)
}

// Delete removes the document record. Cleanup of its vectors and source file
// is best effort and only logged.
func (s *DocumentService) Delete(ctx context.Context, tenantID, docID string) error {
	doc, err := s.docs.GetByID(ctx, tenantID, docID)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, tenantID, docID); err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID), zap.String("document_id", docID))
	if doc.ChunkCount > 0 {
		if err := s.vectors.Delete(ctx, tenantID, model.VectorIDs(docID, doc.ChunkCount)); err != nil {
			logger.Warn("delete document vectors failed", zap.Error(err))
		}
	}
	if err := s.vectors.DeleteDocument(ctx, tenantID, docID, 0); err != nil {
		logger.Warn("prune document vectors failed", zap.Error(err))
	}
	if err := s.files.Delete(ctx, doc.StorageKey); err != nil {
		logger.Warn("delete document file failed", zap.Error(err))
	}
	logger.Info("document deleted")
	return nil
}
