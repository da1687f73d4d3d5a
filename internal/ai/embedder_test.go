package ai

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

type fakeEmbedProvider struct {
	calls   int
	dims    int
	drop    bool
	err     error
	lastReq *EmbedRequest
}

func (f *fakeEmbedProvider) Name() string { return "fake" }

func (f *fakeEmbedProvider) Embed(ctx context.Context, req *EmbedRequest) ([][]float32, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(req.Texts))
	for i := range req.Texts {
		v := make([]float32, f.dims)
		v[0] = float32(i)
		out = append(out, v)
	}
	if f.drop {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestEmbedderBatch(t *testing.T) {
	p := &fakeEmbedProvider{dims: 8}
	e := NewEmbedder(p, EmbedderConfig{Model: "m", Dimensions: 8})

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"}, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Equal(t, float32(2), vectors[2][0])
	require.Equal(t, 1, p.calls)
	require.Equal(t, 8, p.lastReq.Dimensions)
	require.Equal(t, TaskTypeDocument, p.lastReq.TaskType)
	require.Equal(t, "m", e.ModelName())
}

func TestEmbedderEmptyInputSkipsProvider(t *testing.T) {
	p := &fakeEmbedProvider{dims: 8}
	e := NewEmbedder(p, EmbedderConfig{Model: "m", Dimensions: 8})

	vectors, err := e.EmbedBatch(context.Background(), nil, TaskTypeDocument)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Equal(t, 0, p.calls)
}

func TestEmbedOne(t *testing.T) {
	p := &fakeEmbedProvider{dims: 4}
	e := NewEmbedder(p, EmbedderConfig{Model: "m", Dimensions: 4})

	v, err := EmbedOne(context.Background(), e, "q", TaskTypeQuery)
	require.NoError(t, err)
	require.Len(t, v, 4)
}

func TestEmbedderFailures(t *testing.T) {
	tests := []struct {
		name      string
		provider  *fakeEmbedProvider
		dims      int
		retryable bool
	}{
		{name: "count mismatch", provider: &fakeEmbedProvider{dims: 4, drop: true}, dims: 4},
		{name: "dimension mismatch", provider: &fakeEmbedProvider{dims: 3}, dims: 4},
		{name: "missing credentials", provider: &fakeEmbedProvider{err: appErr.ErrUnavailable}, dims: 4},
		{name: "unauthorized", provider: &fakeEmbedProvider{err: &StatusError{Provider: "fake", StatusCode: http.StatusUnauthorized}}, dims: 4},
		{name: "bad request", provider: &fakeEmbedProvider{err: &StatusError{Provider: "fake", StatusCode: http.StatusBadRequest}}, dims: 4},
		{name: "rate limited", provider: &fakeEmbedProvider{err: &StatusError{Provider: "fake", StatusCode: http.StatusTooManyRequests}}, dims: 4, retryable: true},
		{name: "server error", provider: &fakeEmbedProvider{err: fmt.Errorf("wrap: %w", &StatusError{Provider: "fake", StatusCode: http.StatusBadGateway})}, dims: 4, retryable: true},
		{name: "deadline", provider: &fakeEmbedProvider{err: context.DeadlineExceeded}, dims: 4, retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEmbedder(tt.provider, EmbedderConfig{Model: "m", Dimensions: tt.dims})
			_, err := e.EmbedBatch(context.Background(), []string{"a", "b"}, TaskTypeDocument)
			require.Error(t, err)
			require.True(t, appErr.IsKind(err, appErr.KindEmbedding))
			require.Equal(t, tt.retryable, appErr.IsRetryable(err))
		})
	}
}

func TestEmbedderRateLimitHonoursContext(t *testing.T) {
	p := &fakeEmbedProvider{dims: 2}
	e := NewEmbedder(p, EmbedderConfig{Model: "m", Dimensions: 2, RateLimit: 0.001, Burst: 1})

	_, err := e.EmbedBatch(context.Background(), []string{"a"}, TaskTypeDocument)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedBatch(ctx, []string{"b"}, TaskTypeDocument)
	require.Error(t, err)
	require.Equal(t, 1, p.calls)
}
