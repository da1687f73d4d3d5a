package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/ai"
	"github.com/xxxsen/docrag/internal/extract"
	"github.com/xxxsen/docrag/internal/filestore"
	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
	"github.com/xxxsen/docrag/internal/vectorstore"
)

const defaultEmbedBatchSize = 100

var errNoContent = errors.New("no content")

// IngestService turns a stored document into indexed vector records and owns
// the document status machine: uploaded|failed -> processing -> ready|failed.
type IngestService struct {
	docs      DocumentRepository
	files     filestore.Store
	extractor TextExtractor
	chunker   *ai.Chunker
	embedder  ai.IEmbedder
	vectors   vectorstore.Store
	batchSize int
}

func NewIngestService(docs DocumentRepository, files filestore.Store, extractor TextExtractor, chunker *ai.Chunker, embedder ai.IEmbedder, vectors vectorstore.Store, batchSize int) *IngestService {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &IngestService{
		docs:      docs,
		files:     files,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		batchSize: batchSize,
	}
}

// Process ingests one document and returns the number of indexed chunks. A
// document that is not uploaded or failed is rejected with ErrConflict and
// left untouched.
func (s *IngestService) Process(ctx context.Context, tenantID, docID string) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID), zap.String("document_id", docID))
	doc, err := s.docs.GetByID(ctx, tenantID, docID)
	if err != nil {
		return 0, err
	}
	if !doc.Status.CanStartProcessing() {
		return 0, appErr.ErrConflict
	}
	if err := s.docs.StartProcessing(ctx, tenantID, docID, timeutil.NowUnix()); err != nil {
		return 0, err
	}
	logger.Info("document processing started", zap.String("filename", doc.Filename))

	count, err := s.index(ctx, doc)
	// Status writes must land even when the run was cancelled.
	statusCtx := context.WithoutCancel(ctx)
	if err != nil {
		logger.Error("document processing failed", zap.String("kind", appErr.KindOf(err).String()), zap.Error(err))
		if markErr := s.docs.MarkFailed(statusCtx, tenantID, docID, err.Error(), timeutil.NowUnix()); markErr != nil {
			logger.Error("mark document failed", zap.Error(markErr))
		}
		return 0, err
	}
	if err := s.docs.MarkReady(statusCtx, tenantID, docID, count, timeutil.NowUnix()); err != nil {
		logger.Error("mark document ready failed", zap.Error(err))
		// a conflict means the document already left processing
		if !appErr.IsConflict(err) {
			msg := fmt.Sprintf("mark ready: %v", err)
			if markErr := s.docs.MarkFailed(statusCtx, tenantID, docID, msg, timeutil.NowUnix()); markErr != nil {
				logger.Error("mark document failed", zap.Error(markErr))
			}
		}
		return 0, err
	}
	logger.Info("document processing finished", zap.Int("chunk_count", count))
	return count, nil
}

func (s *IngestService) index(ctx context.Context, doc *model.Document) (int, error) {
	src, err := s.files.Open(ctx, doc.StorageKey)
	if err != nil {
		return 0, appErr.Extraction("open source", err)
	}
	defer src.Close()

	raw, err := s.extractor.Extract(ctx, extract.DetectKind(doc.ContentType, doc.Filename), src)
	if err != nil {
		return 0, err
	}
	texts, err := s.chunker.Split(extract.Clean(raw))
	if err != nil {
		return 0, err
	}
	if len(texts) == 0 {
		return 0, appErr.Extraction("chunk", errNoContent)
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(texts) {
		return 0, appErr.Consistency("embed", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(texts)))
	}

	records := make([]model.VectorRecord, 0, len(texts))
	for i, text := range texts {
		chunk := model.Chunk{DocumentID: doc.ID, TenantID: doc.TenantID, Index: i, Text: text}
		records = append(records, model.NewVectorRecord(chunk, vectors[i]))
	}
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		if err := s.vectors.Upsert(ctx, doc.TenantID, records[start:end]); err != nil {
			return 0, err
		}
	}
	// Records past the new chunk count belong to an earlier, longer run.
	if err := s.vectors.DeleteDocument(ctx, doc.TenantID, doc.ID, len(records)); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *IngestService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end], ai.TaskTypeDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}
