package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/ai"
	"github.com/xxxsen/docrag/internal/model"
)

type CacheStore interface {
	GetMany(ctx context.Context, modelName, taskType string, hashes []string) (map[string][]float32, error)
	SaveMany(ctx context.Context, items []model.EmbeddingCache) error
}

func WrapDBCacheToEmbedder(e ai.IEmbedder, store CacheStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store CacheStore
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	hashes := make([]string, len(texts))
	modelName := ""
	for i, text := range texts {
		_, hashes[i], modelName = buildCacheKey(d.next.ModelName(), taskType, text)
	}
	cached, err := d.store.GetMany(ctx, modelName, taskType, hashes)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	var fresh []model.EmbeddingCache
	out, err := embedMissing(ctx, d.next, texts, taskType, func(i int) ([]float32, bool, error) {
		v, ok := cached[hashes[i]]
		return v, ok, nil
	}, func(i int, v []float32) {
		fresh = append(fresh, model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: hashes[i],
			Embedding:   v,
			Ctime:       now,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)", zap.String("task_type", taskType), zap.Int("hits", len(cached)))
	}
	if err := d.store.SaveMany(ctx, fresh); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}

func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}
