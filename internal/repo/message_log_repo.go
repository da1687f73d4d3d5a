package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/dbutil"
)

type MessageLogRepo struct {
	db *sql.DB
}

func NewMessageLogRepo(db *sql.DB) *MessageLogRepo {
	return &MessageLogRepo{db: db}
}

func (r *MessageLogRepo) Create(ctx context.Context, item *model.MessageLog) error {
	data := map[string]interface{}{
		"id":              item.ID,
		"tenant_id":       item.TenantID,
		"question":        item.Question,
		"answer":          item.Answer,
		"is_context_used": item.IsContextUsed,
		"ctime":           item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("message_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MessageLogRepo) ListByTenant(ctx context.Context, tenantID string, limit uint) ([]model.MessageLog, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"_orderby":  "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("message_logs", where, []string{"id", "tenant_id", "question", "answer", "is_context_used", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.MessageLog, 0)
	for rows.Next() {
		var item model.MessageLog
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Question, &item.Answer, &item.IsContextUsed, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
