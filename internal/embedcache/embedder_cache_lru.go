package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/ai"
)

func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i], _, _ = buildCacheKey(l.next.ModelName(), taskType, text)
	}
	out, err := embedMissing(ctx, l.next, texts, taskType, func(i int) ([]float32, bool, error) {
		cached, ok := l.cache.Get(keys[i])
		if !ok {
			return nil, false, nil
		}
		return cloneEmbedding(cached), true, nil
	}, func(i int, v []float32) {
		l.cache.Add(keys[i], cloneEmbedding(v))
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("embedding batch served (lru)", zap.String("task_type", taskType), zap.Int("count", len(texts)))
	return out, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}

// embedMissing resolves texts through lookup and sends the misses to next in a
// single batch, keeping the input order.
func embedMissing(
	ctx context.Context,
	next ai.IEmbedder,
	texts []string,
	taskType string,
	lookup func(i int) ([]float32, bool, error),
	store func(i int, v []float32),
) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missText := make([]string, 0, len(texts))
	for i, text := range texts {
		v, ok, err := lookup(i)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missText = append(missText, text)
	}
	if len(missText) == 0 {
		return out, nil
	}
	vectors, err := next.EmbedBatch(ctx, missText, taskType)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		store(i, vectors[j])
	}
	return out, nil
}
