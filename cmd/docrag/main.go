package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/config"
	"github.com/xxxsen/docrag/internal/db"
	"github.com/xxxsen/docrag/internal/handler"
	"github.com/xxxsen/docrag/internal/job"
	"github.com/xxxsen/docrag/internal/middleware"
	"github.com/xxxsen/docrag/internal/pkg/jwt"
	"github.com/xxxsen/docrag/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "multi-tenant document retrieval server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
		return cfg, nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docrag server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := db.ApplyMigrations(a.db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(a)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			sqlDB, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer sqlDB.Close()
			return db.ApplyMigrations(sqlDB)
		},
	}

	var tenantID string
	reindexCmd := &cobra.Command{
		Use:   "reindex <document-id>",
		Short: "process one uploaded or failed document synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			count, err := a.ingest.Process(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "document %s indexed, %d chunks\n", args[0], count)
			return nil
		},
	}
	reindexCmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id owning the document")

	var tokenTenant, tokenSubject string
	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue a bearer token for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenTenant == "" {
				return fmt.Errorf("--tenant is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(tokenTenant, tokenSubject, []byte(cfg.JWTSecret), tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", "", "tenant id")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "optional subject claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(runCmd, migrateCmd, reindexCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("vector_store", cfg.VectorStore.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.tasks.Start(ctx)
	defer a.tasks.Stop()

	scheduler := schedule.NewCronScheduler()
	recovery := job.NewIngestRecoveryJob(a.docRepo, a.taskRepo, time.Duration(cfg.Ingest.StaleMinutes)*time.Minute)
	jobs := []struct {
		job  schedule.Job
		spec string
	}{
		{job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.Embedding.DBCacheMaxDays), cfg.Schedule.EmbeddingCacheCleanup},
		{recovery, cfg.Schedule.IngestRecovery},
		{job.NewIngestRedispatchJob(a.tasks, time.Minute), cfg.Schedule.IngestRedispatch},
	}
	for _, item := range jobs {
		if err := scheduler.AddJob(item.job, item.spec); err != nil {
			return fmt.Errorf("schedule %s: %w", item.job.Name(), err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()
	// runs left behind by a previous process
	if err := scheduler.RunNow(recovery.Name()); err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Documents:  handler.NewDocumentHandler(a.documents, int64(cfg.Upload.MaxSizeMB)*1024*1024),
		Tasks:      handler.NewTaskHandler(a.tasks),
		Chat:       handler.NewChatHandler(a.chat),
		JWTSecret:  []byte(cfg.JWTSecret),
		ChatLimit:  cfg.ChatLimit.Limit,
		ChatWindow: time.Duration(cfg.ChatLimit.WindowSeconds) * time.Second,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
