package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/dbutil"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

var taskColumns = []string{"id", "tenant_id", "document_id", "status", "error_msg", "chunk_count", "ctime", "mtime"}

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, task *model.IngestTask) error {
	data := map[string]interface{}{
		"id":          task.ID,
		"tenant_id":   task.TenantID,
		"document_id": task.DocumentID,
		"status":      string(task.Status),
		"error_msg":   task.ErrorMsg,
		"chunk_count": task.ChunkCount,
		"ctime":       task.Ctime,
		"mtime":       task.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("ingest_tasks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *TaskRepo) Get(ctx context.Context, tenantID, taskID string) (*model.IngestTask, error) {
	tasks, err := r.query(ctx, map[string]interface{}{
		"id":        taskID,
		"tenant_id": tenantID,
	})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &tasks[0], nil
}

// UpdateStatusIf moves a task from one status to another and reports whether
// the row was in the expected status.
func (r *TaskRepo) UpdateStatusIf(ctx context.Context, taskID string, from, to model.TaskStatus, mtime int64) (bool, error) {
	where := map[string]interface{}{
		"id":     taskID,
		"status": string(from),
	}
	update := map[string]interface{}{
		"status": string(to),
		"mtime":  mtime,
	}
	return r.update(ctx, where, update)
}

// Finish records the outcome of a running task.
func (r *TaskRepo) Finish(ctx context.Context, taskID string, status model.TaskStatus, errMsg string, chunkCount int, mtime int64) error {
	where := map[string]interface{}{
		"id":     taskID,
		"status": string(model.TaskStatusRunning),
	}
	update := map[string]interface{}{
		"status":      string(status),
		"error_msg":   errMsg,
		"chunk_count": chunkCount,
		"mtime":       mtime,
	}
	ok, err := r.update(ctx, where, update)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrConflict
	}
	return nil
}

func (r *TaskRepo) ListByStatusBefore(ctx context.Context, status model.TaskStatus, before int64, limit uint) ([]model.IngestTask, error) {
	where := map[string]interface{}{
		"status":   string(status),
		"mtime <":  before,
		"_orderby": "mtime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	return r.query(ctx, where)
}

func (r *TaskRepo) update(ctx context.Context, where, update map[string]interface{}) (bool, error) {
	sqlStr, args, err := builder.BuildUpdate("ingest_tasks", where, update)
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

func (r *TaskRepo) query(ctx context.Context, where map[string]interface{}) ([]model.IngestTask, error) {
	sqlStr, args, err := builder.BuildSelect("ingest_tasks", where, taskColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := make([]model.IngestTask, 0)
	for rows.Next() {
		var task model.IngestTask
		if err := rows.Scan(&task.ID, &task.TenantID, &task.DocumentID, &task.Status, &task.ErrorMsg, &task.ChunkCount, &task.Ctime, &task.Mtime); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
