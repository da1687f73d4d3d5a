package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	JWTSecret   string            `json:"jwt_secret"`
	Database    DatabaseConfig    `json:"database"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	FileStore   FileStoreConfig   `json:"file_store"`
	AI          AIConfig          `json:"ai"`
	Embedding   EmbeddingConfig   `json:"embedding"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	Ingest      IngestConfig      `json:"ingest"`
	Retrieval   RetrievalConfig   `json:"retrieval"`
	Schedule    ScheduleConfig    `json:"schedule"`
	Upload      UploadConfig      `json:"upload"`
	ChatLimit   RateLimitConfig   `json:"chat_limit"`
	CORSOrigins []string          `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Embed ProviderConfig   `json:"embed"`
	Chat  []ProviderConfig `json:"chat"`
}

type EmbeddingConfig struct {
	Dimensions      int     `json:"dimensions"`
	BatchSize       int     `json:"batch_size"`
	RateLimit       float64 `json:"rate_limit"`
	Burst           int     `json:"burst"`
	CacheSize       int     `json:"cache_size"`
	CacheTTLSeconds int     `json:"cache_ttl_seconds"`
	DBCache         bool    `json:"db_cache"`
	DBCacheMaxDays  int     `json:"db_cache_max_days"`
}

type VectorStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type IngestConfig struct {
	ChunkSize    int `json:"chunk_size"`
	Overlap      int `json:"overlap"`
	Workers      int `json:"workers"`
	QueueSize    int `json:"queue_size"`
	StaleMinutes int `json:"stale_minutes"`
}

type RetrievalConfig struct {
	TopK           int      `json:"top_k"`
	Model          string   `json:"model"`
	Temperature    *float32 `json:"temperature"`
	MaxTokens      int      `json:"max_tokens"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

type ScheduleConfig struct {
	EmbeddingCacheCleanup string `json:"embedding_cache_cleanup"`
	IngestRecovery        string `json:"ingest_recovery"`
	IngestRedispatch      string `json:"ingest_redispatch"`
}

type UploadConfig struct {
	MaxSizeMB int `json:"max_size_mb"`
}

type RateLimitConfig struct {
	Limit         int `json:"limit"`
	WindowSeconds int `json:"window_seconds"`
}

// Load reads the JSON config at path. A .env file next to it, if any, is
// loaded first and ${VAR} references in the file are expanded from the
// environment.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Embed.Provider == "" {
		return fmt.Errorf("ai.embed.provider is required")
	}
	if cfg.AI.Embed.Model == "" {
		return fmt.Errorf("ai.embed.model is required")
	}
	if len(cfg.AI.Chat) == 0 {
		return fmt.Errorf("ai.chat needs at least one provider")
	}
	for i := range cfg.AI.Chat {
		if cfg.AI.Chat[i].Provider == "" {
			return fmt.Errorf("ai.chat[%d].provider is required", i)
		}
		if cfg.AI.Chat[i].Name == "" {
			cfg.AI.Chat[i].Name = cfg.AI.Chat[i].Provider
		}
	}
	if cfg.Embedding.Dimensions <= 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.CacheTTLSeconds == 0 {
		cfg.Embedding.CacheTTLSeconds = 3600
	}
	if cfg.Embedding.DBCacheMaxDays <= 0 {
		cfg.Embedding.DBCacheMaxDays = 30
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "pgvector"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 800
	}
	if cfg.Ingest.Overlap < 0 {
		return fmt.Errorf("ingest.overlap must not be negative")
	}
	if cfg.Ingest.Overlap == 0 {
		cfg.Ingest.Overlap = 100
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 2
	}
	if cfg.Ingest.QueueSize <= 0 {
		cfg.Ingest.QueueSize = 64
	}
	if cfg.Ingest.StaleMinutes <= 0 {
		cfg.Ingest.StaleMinutes = 30
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.Temperature == nil {
		temperature := float32(0.7)
		cfg.Retrieval.Temperature = &temperature
	}
	if cfg.Retrieval.MaxTokens <= 0 {
		cfg.Retrieval.MaxTokens = 1000
	}
	if cfg.Retrieval.TimeoutSeconds <= 0 {
		cfg.Retrieval.TimeoutSeconds = 30
	}
	if cfg.Schedule.EmbeddingCacheCleanup == "" {
		cfg.Schedule.EmbeddingCacheCleanup = "0 3 * * *"
	}
	if cfg.Schedule.IngestRecovery == "" {
		cfg.Schedule.IngestRecovery = "*/5 * * * *"
	}
	if cfg.Schedule.IngestRedispatch == "" {
		cfg.Schedule.IngestRedispatch = "* * * * *"
	}
	if cfg.Upload.MaxSizeMB <= 0 {
		cfg.Upload.MaxSizeMB = 20
	}
	if cfg.ChatLimit.Limit <= 0 {
		cfg.ChatLimit.Limit = 30
	}
	if cfg.ChatLimit.WindowSeconds <= 0 {
		cfg.ChatLimit.WindowSeconds = 60
	}
	return nil
}
