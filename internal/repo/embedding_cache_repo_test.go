package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/repo"
	"github.com/xxxsen/docrag/internal/testutil"
)

func TestEmbeddingCacheRepo(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	cache := repo.NewEmbeddingCacheRepo(db)
	items := []model.EmbeddingCache{
		{ModelName: "test-model", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "hash-a", Embedding: []float32{1, 2, 3}, Ctime: 100},
		{ModelName: "test-model", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "hash-b", Embedding: []float32{4, 5, 6}, Ctime: 100},
	}
	require.NoError(t, cache.SaveMany(ctx, items))
	// upsert refreshes the vector
	items[0].Embedding = []float32{7, 8, 9}
	require.NoError(t, cache.SaveMany(ctx, items[:1]))

	got, err := cache.GetMany(ctx, "test-model", "RETRIEVAL_DOCUMENT", []string{"hash-a", "hash-b", "hash-missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []float32{7, 8, 9}, got["hash-a"])

	got, err = cache.GetMany(ctx, "test-model", "RETRIEVAL_QUERY", []string{"hash-a"})
	require.NoError(t, err)
	require.Empty(t, got)

	n, err := cache.DeleteBefore(ctx, 101)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(2))
}
