package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/config"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	body := "hello document"
	require.NoError(t, store.Save(ctx, "tenant-1/doc.txt", strings.NewReader(body), int64(len(body))))

	f, err := store.Open(ctx, "tenant-1/doc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, body, string(data))
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, store.Delete(ctx, "tenant-1/doc.txt"))
	_, err = store.Open(ctx, "tenant-1/doc.txt")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "tenant-1/doc.txt"))
}

func TestLocalStoreRejectsBadKeys(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	for _, key := range []string{"", "../x", "/abs", `a\b`} {
		err := store.Save(context.Background(), key, strings.NewReader("x"), 1)
		require.Error(t, err, key)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp", Data: map[string]interface{}{}})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{}})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "s3", Data: map[string]interface{}{}})
	require.Error(t, err)
}
