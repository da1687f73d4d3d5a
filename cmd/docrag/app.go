package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/ai"
	"github.com/xxxsen/docrag/internal/config"
	"github.com/xxxsen/docrag/internal/db"
	"github.com/xxxsen/docrag/internal/embedcache"
	"github.com/xxxsen/docrag/internal/extract"
	"github.com/xxxsen/docrag/internal/filestore"
	"github.com/xxxsen/docrag/internal/repo"
	"github.com/xxxsen/docrag/internal/service"
	"github.com/xxxsen/docrag/internal/vectorstore"
)

type app struct {
	cfg *config.Config
	db  *sql.DB

	docRepo   *repo.DocumentRepo
	taskRepo  *repo.TaskRepo
	cacheRepo *repo.EmbeddingCacheRepo

	vectors   vectorstore.Store
	ingest    *service.IngestService
	tasks     *service.TaskService
	documents *service.DocumentService
	chat      *service.ChatService
}

func newApp(cfg *config.Config) (*app, error) {
	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a := &app{cfg: cfg, db: sqlDB}
	if err := a.init(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init() error {
	cfg := a.cfg
	logger := logutil.GetLogger(context.Background())

	a.docRepo = repo.NewDocumentRepo(a.db)
	a.taskRepo = repo.NewTaskRepo(a.db)
	a.cacheRepo = repo.NewEmbeddingCacheRepo(a.db)
	logRepo := repo.NewMessageLogRepo(a.db)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	a.vectors, err = vectorstore.New(cfg.VectorStore.Type, cfg.VectorStore.Data, vectorstore.Deps{DB: a.db})
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	embedder, err := buildEmbedder(cfg, a.cacheRepo)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(cfg.AI.Chat)
	if err != nil {
		return err
	}
	chunker, err := ai.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.Overlap)
	if err != nil {
		return fmt.Errorf("init chunker: %w", err)
	}

	a.ingest = service.NewIngestService(a.docRepo, files, extract.NewRegistry(), chunker, embedder, a.vectors, cfg.Embedding.BatchSize)
	a.tasks = service.NewTaskService(a.taskRepo, a.docRepo, a.ingest, service.TaskConfig{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
	})
	a.documents = service.NewDocumentService(a.docRepo, files, a.vectors, a.tasks)
	retrieval := service.NewRetrievalService(embedder, a.vectors, generator, service.RetrievalConfig{
		Temperature: cfg.Retrieval.Temperature,
		MaxTokens:   cfg.Retrieval.MaxTokens,
		Timeout:     time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
	})
	a.chat = service.NewChatService(retrieval, logRepo, cfg.Retrieval.TopK, cfg.Retrieval.Model)

	logger.Info("components initialized",
		zap.String("file_store", files.Type()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("embed_provider", cfg.AI.Embed.Provider),
		zap.String("embed_model", embedder.ModelName()),
		zap.Int("chat_providers", len(cfg.AI.Chat)),
	)
	return nil
}

func (a *app) Close() error {
	if a.vectors != nil {
		if err := a.vectors.Close(); err != nil {
			logutil.GetLogger(context.Background()).Warn("close vector store failed", zap.Error(err))
		}
	}
	return a.db.Close()
}

// buildEmbedder layers the query LRU over the persistent cache over the
// rate limited provider.
func buildEmbedder(cfg *config.Config, cache embedcache.CacheStore) (ai.IEmbedder, error) {
	provider, err := ai.NewEmbedProvider(cfg.AI.Embed.Provider, cfg.AI.Embed.Data)
	if err != nil {
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	var embedder ai.IEmbedder = ai.NewEmbedder(provider, ai.EmbedderConfig{
		Model:      cfg.AI.Embed.Model,
		Dimensions: cfg.Embedding.Dimensions,
		RateLimit:  cfg.Embedding.RateLimit,
		Burst:      cfg.Embedding.Burst,
	})
	if cfg.Embedding.DBCache {
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, cache)
	}
	return embedcache.WrapLruCacheToEmbedder(embedder, cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second), nil
}

func buildGenerator(items []config.ProviderConfig) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(items))
	for _, item := range items {
		provider, err := ai.NewChatProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init chat provider %s: %w", item.Name, err)
		}
		entries = append(entries, ai.GeneratorEntry{Name: item.Name, Generator: ai.NewGenerator(provider, item.Model)})
	}
	generator := ai.NewGroupGenerator(entries)
	if generator == nil {
		return nil, fmt.Errorf("no chat provider configured")
	}
	return generator, nil
}
