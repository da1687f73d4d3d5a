package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

const pingTimeout = 5 * time.Second

type pgvectorConfig struct {
	DSN string `json:"dsn"`
}

// pgStore keeps records in the vector_records table keyed by
// (namespace, id) and ranks by cosine distance.
type pgStore struct {
	dsn    string
	mu     sync.Mutex
	db     *sql.DB
	shared bool
}

func init() {
	Register("pgvector", createPgStore)
}

func createPgStore(args interface{}, deps Deps) (Store, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, appErr.VectorStore("config", false, err)
	}
	if cfg.DSN == "" && deps.DB == nil {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("pgvector store needs a dsn or the shared database"))
	}
	return NewPgStore(cfg.DSN, deps.DB), nil
}

// NewPgStore uses db when dsn is empty, otherwise opens its own pool on first use.
func NewPgStore(dsn string, db *sql.DB) Store {
	if dsn == "" {
		return &pgStore{db: db, shared: true}
	}
	return &pgStore{dsn: dsn}
}

// conn opens the private pool on first use. A failed open is not kept, so the
// next call tries again. The ping is bounded by its own timeout and ignores
// cancellation of the calling request.
func (s *pgStore) conn(ctx context.Context) (*sql.DB, error) {
	if s.shared {
		return s.db, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("postgres", s.dsn)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			_ = db.Close()
		}
	}
	if err != nil {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("connect pgvector: %w", err))
	}
	s.db = db
	return db, nil
}

func (s *pgStore) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := checkNamespace("upsert", namespace); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO vector_records (namespace, id, document_id, chunk_index, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (namespace, id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			chunk_index = EXCLUDED.chunk_index,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return appErr.VectorStore("upsert", true, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return appErr.VectorStore("upsert", false, err)
	}
	defer stmt.Close()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			namespace,
			rec.ID,
			rec.Metadata.DocumentID,
			rec.Metadata.ChunkIndex,
			rec.Metadata.Text,
			pgvector.NewVector(rec.Vector),
		); err != nil {
			return appErr.VectorStore("upsert", false, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return appErr.VectorStore("upsert", true, err)
	}
	logutil.GetLogger(ctx).Debug("pgvector upsert", zap.String("namespace", namespace), zap.Int("count", len(records)))
	return nil
}

func (s *pgStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if err := checkQuery(namespace, topK); err != nil {
		return nil, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	const query = `
		SELECT id, document_id, chunk_index, text, 1 - (embedding <=> $2) AS score
		FROM vector_records
		WHERE namespace = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := db.QueryContext(ctx, query, namespace, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, appErr.VectorStore("query", false, err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		var score float64
		if err := rows.Scan(&m.ID, &m.Metadata.DocumentID, &m.Metadata.ChunkIndex, &m.Metadata.Text, &score); err != nil {
			return nil, appErr.VectorStore("query", false, err)
		}
		m.Score = float32(score)
		m.Metadata.TenantID = namespace
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.VectorStore("query", false, err)
	}
	return matches, nil
}

func (s *pgStore) Delete(ctx context.Context, namespace string, ids []string) error {
	if err := checkNamespace("delete", namespace); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	const query = `DELETE FROM vector_records WHERE namespace = $1 AND id = ANY($2)`
	if _, err := db.ExecContext(ctx, query, namespace, pq.Array(ids)); err != nil {
		return appErr.VectorStore("delete", false, err)
	}
	return nil
}

func (s *pgStore) DeleteDocument(ctx context.Context, namespace, documentID string, fromIndex int) error {
	if err := checkNamespace("delete document", namespace); err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	const query = `DELETE FROM vector_records WHERE namespace = $1 AND document_id = $2 AND chunk_index >= $3`
	if _, err := db.ExecContext(ctx, query, namespace, documentID, fromIndex); err != nil {
		return appErr.VectorStore("delete document", false, err)
	}
	return nil
}

func (s *pgStore) Close() error {
	if s.shared {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
