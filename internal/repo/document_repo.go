package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

var documentColumns = []string{"id", "tenant_id", "filename", "storage_key", "content_type", "size", "status", "chunk_count", "error_msg", "ctime", "mtime"}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":           doc.ID,
		"tenant_id":    doc.TenantID,
		"filename":     doc.Filename,
		"storage_key":  doc.StorageKey,
		"content_type": doc.ContentType,
		"size":         doc.Size,
		"status":       string(doc.Status),
		"chunk_count":  doc.ChunkCount,
		"error_msg":    doc.ErrorMsg,
		"ctime":        doc.Ctime,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
	}
	docs, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &docs[0], nil
}

func (r *DocumentRepo) List(ctx context.Context, tenantID string, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"_orderby":  "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	return r.query(ctx, where)
}

// ListStaleProcessing returns documents that entered processing before the cutoff.
func (r *DocumentRepo) ListStaleProcessing(ctx context.Context, before int64, limit uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"status":   string(model.DocumentStatusProcessing),
		"mtime <":  before,
		"_orderby": "mtime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	return r.query(ctx, where)
}

// StartProcessing moves a document from uploaded or failed to processing and
// clears its chunk count in the same statement.
func (r *DocumentRepo) StartProcessing(ctx context.Context, tenantID, docID string, mtime int64) error {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
		"status in": []interface{}{string(model.DocumentStatusUploaded), string(model.DocumentStatusFailed)},
	}
	update := map[string]interface{}{
		"status":      string(model.DocumentStatusProcessing),
		"chunk_count": 0,
		"error_msg":   "",
		"mtime":       mtime,
	}
	ok, err := r.updateIf(ctx, where, update)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := r.GetByID(ctx, tenantID, docID); err != nil {
		return err
	}
	return appErr.ErrConflict
}

func (r *DocumentRepo) MarkReady(ctx context.Context, tenantID, docID string, chunkCount int, mtime int64) error {
	return r.finish(ctx, tenantID, docID, map[string]interface{}{
		"status":      string(model.DocumentStatusReady),
		"chunk_count": chunkCount,
		"error_msg":   "",
		"mtime":       mtime,
	})
}

func (r *DocumentRepo) MarkFailed(ctx context.Context, tenantID, docID, errMsg string, mtime int64) error {
	return r.finish(ctx, tenantID, docID, map[string]interface{}{
		"status":      string(model.DocumentStatusFailed),
		"chunk_count": 0,
		"error_msg":   errMsg,
		"mtime":       mtime,
	})
}

func (r *DocumentRepo) finish(ctx context.Context, tenantID, docID string, update map[string]interface{}) error {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
		"status":    string(model.DocumentStatusProcessing),
	}
	ok, err := r.updateIf(ctx, where, update)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrConflict
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, tenantID, docID string) error {
	where := map[string]interface{}{
		"id":        docID,
		"tenant_id": tenantID,
	}
	sqlStr, args, err := builder.BuildDelete("documents", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) updateIf(ctx context.Context, where, update map[string]interface{}) (bool, error) {
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *DocumentRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.Filename, &doc.StorageKey, &doc.ContentType, &doc.Size, &doc.Status, &doc.ChunkCount, &doc.ErrorMsg, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
