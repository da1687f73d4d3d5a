package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/docrag/internal/config"
	"github.com/xxxsen/docrag/internal/db"
)

// TestDBConfig returns the connection settings of the test database, skipping
// the test when TEST_DB_HOST is not set.
func TestDBConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	return config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "docrag",
		Password: "docrag_pass",
		DBName:   "docrag_test",
		SSLMode:  "disable",
	}
}

func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	conn, err := db.Open(TestDBConfig(t))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}
