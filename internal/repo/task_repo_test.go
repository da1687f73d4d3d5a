package repo_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
	"github.com/xxxsen/docrag/internal/repo"
	"github.com/xxxsen/docrag/internal/testutil"
)

func TestTaskRepoLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tasks := repo.NewTaskRepo(db)
	now := timeutil.NowUnix()
	task := &model.IngestTask{ID: "task-1-" + time36(now), TenantID: "tenant-1", DocumentID: "doc-1", Status: model.TaskStatusPending, Ctime: now, Mtime: now - 120}
	require.NoError(t, tasks.Create(ctx, task))

	pending, err := tasks.ListByStatusBefore(ctx, model.TaskStatusPending, now-60, 100)
	require.NoError(t, err)
	found := false
	for _, p := range pending {
		if p.ID == task.ID {
			found = true
		}
	}
	require.True(t, found)

	ok, err := tasks.UpdateStatusIf(ctx, task.ID, model.TaskStatusPending, model.TaskStatusRunning, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = tasks.UpdateStatusIf(ctx, task.ID, model.TaskStatusPending, model.TaskStatusRunning, now)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, tasks.Finish(ctx, task.ID, model.TaskStatusSucceeded, "", 3, now))
	require.ErrorIs(t, tasks.Finish(ctx, task.ID, model.TaskStatusFailed, "x", 0, now), appErr.ErrConflict)

	got, err := tasks.Get(ctx, "tenant-1", task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, got.Status)
	require.Equal(t, 3, got.ChunkCount)

	_, err = tasks.Get(ctx, "tenant-2", task.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func time36(v int64) string {
	return strconv.FormatInt(v, 36)
}
