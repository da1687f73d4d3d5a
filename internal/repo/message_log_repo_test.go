package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
	"github.com/xxxsen/docrag/internal/repo"
	"github.com/xxxsen/docrag/internal/testutil"
)

func TestMessageLogRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logs := repo.NewMessageLogRepo(db)
	now := timeutil.NowUnix()
	require.NoError(t, logs.Create(ctx, &model.MessageLog{ID: "log-1", TenantID: "log-tenant", Question: "q1", Answer: "a1", IsContextUsed: true, Ctime: now}))
	require.NoError(t, logs.Create(ctx, &model.MessageLog{ID: "log-2", TenantID: "log-tenant", Question: "q2", Answer: "a2", Ctime: now + 1}))
	require.NoError(t, logs.Create(ctx, &model.MessageLog{ID: "log-3", TenantID: "other-tenant", Question: "q3", Answer: "a3", Ctime: now}))
	defer func() {
		_, _ = db.ExecContext(ctx, "DELETE FROM message_logs WHERE id IN ('log-1', 'log-2', 'log-3')")
	}()

	items, err := logs.ListByTenant(ctx, "log-tenant", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "log-2", items[0].ID)
	require.False(t, items[0].IsContextUsed)
	require.True(t, items[1].IsContextUsed)
}
