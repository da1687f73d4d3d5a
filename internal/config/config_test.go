package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCRAG_TEST_EMBED_KEY=from-dotenv\n"), 0o644))
	t.Setenv("DOCRAG_TEST_JWT", "secret")
	path := writeConfig(t, dir, `{
		"port": 8080,
		"jwt_secret": "${DOCRAG_TEST_JWT}",
		"database": {"host": "localhost"},
		"ai": {
			"embed": {"provider": "openai", "model": "text-embedding-3-small", "data": {"api_key": "${DOCRAG_TEST_EMBED_KEY}"}},
			"chat": [{"provider": "openai", "model": "gpt-4o-mini"}]
		}
	}`)
	t.Cleanup(func() { _ = os.Unsetenv("DOCRAG_TEST_EMBED_KEY") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "secret", cfg.JWTSecret)
	require.Equal(t, map[string]interface{}{"api_key": "from-dotenv"}, cfg.AI.Embed.Data)
	require.Equal(t, "openai", cfg.AI.Chat[0].Name)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 1024, cfg.Embedding.Dimensions)
	require.Equal(t, 800, cfg.Ingest.ChunkSize)
	require.Equal(t, 100, cfg.Ingest.Overlap)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, 30, cfg.Retrieval.TimeoutSeconds)
	require.NotNil(t, cfg.Retrieval.Temperature)
	require.Equal(t, float32(0.7), *cfg.Retrieval.Temperature)
	require.Equal(t, "pgvector", cfg.VectorStore.Type)
	require.Equal(t, "local", cfg.FileStore.Type)
}

func TestLoadRejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: `{"port": 1, "database": {"host": "h"}}`},
		{name: "missing database", body: `{"port": 1, "jwt_secret": "s"}`},
		{name: "missing embed", body: `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "ai": {"chat": [{"provider": "openai"}]}}`},
		{name: "missing chat", body: `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "ai": {"embed": {"provider": "openai", "model": "m"}}}`},
		{name: "bad json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadKeepsExplicitZeroTemperature(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `{
		"port": 8080,
		"jwt_secret": "s",
		"database": {"host": "localhost"},
		"ai": {
			"embed": {"provider": "openai", "model": "m"},
			"chat": [{"provider": "openai", "model": "c"}]
		},
		"retrieval": {"temperature": 0}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Retrieval.Temperature)
	require.Equal(t, float32(0), *cfg.Retrieval.Temperature)
}
