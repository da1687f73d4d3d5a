package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/timeutil"
	"github.com/xxxsen/docrag/internal/repo"
	"github.com/xxxsen/docrag/internal/testutil"
)

func TestDocumentRepoStatusTransitions(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	docs := repo.NewDocumentRepo(db)
	now := timeutil.NowUnix()
	doc := &model.Document{
		ID:         "doc-status-1",
		TenantID:   "tenant-1",
		Filename:   "a.pdf",
		StorageKey: "tenant-1_a.pdf",
		Status:     model.DocumentStatusUploaded,
		Ctime:      now,
		Mtime:      now,
	}
	require.NoError(t, docs.Create(ctx, doc))
	defer func() { _ = docs.Delete(ctx, "tenant-1", doc.ID) }()

	_, err := docs.GetByID(ctx, "tenant-2", doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, docs.StartProcessing(ctx, "tenant-1", doc.ID, now))
	require.ErrorIs(t, docs.StartProcessing(ctx, "tenant-1", doc.ID, now), appErr.ErrConflict)
	require.ErrorIs(t, docs.StartProcessing(ctx, "tenant-1", "missing", now), appErr.ErrNotFound)

	require.NoError(t, docs.MarkReady(ctx, "tenant-1", doc.ID, 7, now))
	fetched, err := docs.GetByID(ctx, "tenant-1", doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusReady, fetched.Status)
	require.Equal(t, 7, fetched.ChunkCount)

	require.ErrorIs(t, docs.StartProcessing(ctx, "tenant-1", doc.ID, now), appErr.ErrConflict)
	require.ErrorIs(t, docs.MarkFailed(ctx, "tenant-1", doc.ID, "late", now), appErr.ErrConflict)
}

func TestDocumentRepoFailedCanRestart(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	docs := repo.NewDocumentRepo(db)
	now := timeutil.NowUnix()
	doc := &model.Document{ID: "doc-status-2", TenantID: "tenant-1", Filename: "b.pdf", StorageKey: "k", Status: model.DocumentStatusUploaded, Ctime: now, Mtime: now}
	require.NoError(t, docs.Create(ctx, doc))
	defer func() { _ = docs.Delete(ctx, "tenant-1", doc.ID) }()

	require.NoError(t, docs.StartProcessing(ctx, "tenant-1", doc.ID, now-3600))
	stale, err := docs.ListStaleProcessing(ctx, now-60, 10)
	require.NoError(t, err)
	require.NotEmpty(t, stale)

	require.NoError(t, docs.MarkFailed(ctx, "tenant-1", doc.ID, "boom", now))
	fetched, err := docs.GetByID(ctx, "tenant-1", doc.ID)
	require.NoError(t, err)
	require.Equal(t, model.DocumentStatusFailed, fetched.Status)
	require.Equal(t, 0, fetched.ChunkCount)
	require.Equal(t, "boom", fetched.ErrorMsg)

	require.NoError(t, docs.StartProcessing(ctx, "tenant-1", doc.ID, now))
}
