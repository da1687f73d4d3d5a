package ai

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

const DefaultDimensions = 1024

// IEmbedder turns texts into fixed-dimension vectors, one provider call per batch.
type IEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type EmbedderConfig struct {
	Model      string
	Dimensions int
	// RateLimit is the number of provider calls allowed per second; zero disables pacing.
	RateLimit float64
	Burst     int
}

type embedder struct {
	provider   IEmbedProvider
	model      string
	dimensions int
	limiter    *rate.Limiter
}

func NewEmbedder(p IEmbedProvider, cfg EmbedderConfig) IEmbedder {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	e := &embedder{provider: p, model: cfg.Model, dimensions: dims}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return e
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e.provider == nil {
		return nil, appErr.Embedding("embed batch", false, appErr.ErrUnavailable)
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, appErr.Embedding("embed batch", true, err)
		}
	}
	vectors, err := e.provider.Embed(ctx, &EmbedRequest{
		Model:      e.model,
		Texts:      texts,
		Dimensions: e.dimensions,
		TaskType:   taskType,
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("embedding call failed",
			zap.String("provider", e.provider.Name()),
			zap.String("model", e.model),
			zap.Int("batch", len(texts)),
			zap.Error(err),
		)
		return nil, classifyEmbedError("embed batch", err)
	}
	if len(vectors) != len(texts) {
		return nil, appErr.Embedding("embed batch", false, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	for i, v := range vectors {
		if len(v) != e.dimensions {
			return nil, appErr.Embedding("embed batch", false, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), e.dimensions))
		}
	}
	return vectors, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

// EmbedOne embeds a single text through a batch embedder.
func EmbedOne(ctx context.Context, e IEmbedder, text string, taskType string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, appErr.Embedding("embed one", false, fmt.Errorf("got %d vectors for one text", len(vectors)))
	}
	return vectors[0], nil
}
