package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

var bucketVectors = []byte("vectors")

type boltConfig struct {
	Path string `json:"path"`
}

// boltStore keeps one nested bucket per namespace under the vectors bucket.
// Queries scan the namespace bucket and rank by cosine similarity.
type boltStore struct {
	path string
	mu   sync.Mutex
	db   *bbolt.DB
}

type boltRecord struct {
	Vector   []float32            `json:"vector"`
	Metadata model.VectorMetadata `json:"metadata"`
}

func init() {
	Register("bolt", createBoltStore)
}

func createBoltStore(args interface{}, deps Deps) (Store, error) {
	cfg := &boltConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, appErr.VectorStore("config", false, err)
	}
	if cfg.Path == "" {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("bolt vector store path is required"))
	}
	return NewBoltStore(cfg.Path), nil
}

// NewBoltStore returns a store backed by the bolt file at path. The file is
// opened on first use.
func NewBoltStore(path string) Store {
	return &boltStore{path: path}
}

// open returns the shared handle, retrying on every call until a first open
// succeeds.
func (s *boltStore) open() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, appErr.VectorStore("config", false, err)
	}
	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("failed to open bolt db: %w", err))
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, appErr.VectorStore("config", false, err)
	}
	s.db = db
	return db, nil
}

func (s *boltStore) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := checkNamespace("upsert", namespace); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		space, err := tx.Bucket(bucketVectors).CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		for _, rec := range records {
			data, err := json.Marshal(boltRecord{Vector: rec.Vector, Metadata: rec.Metadata})
			if err != nil {
				return err
			}
			if err := space.Put([]byte(rec.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErr.VectorStore("upsert", false, err)
	}
	logutil.GetLogger(ctx).Debug("bolt upsert", zap.String("namespace", namespace), zap.Int("count", len(records)))
	return nil
}

func (s *boltStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if err := checkQuery(namespace, topK); err != nil {
		return nil, err
	}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	var matches []Match
	err = db.View(func(tx *bbolt.Tx) error {
		space := tx.Bucket(bucketVectors).Bucket([]byte(namespace))
		if space == nil {
			return nil
		}
		return space.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			matches = append(matches, Match{ID: string(k), Score: cosine(vector, rec.Vector), Metadata: rec.Metadata})
			return nil
		})
	})
	if err != nil {
		return nil, appErr.VectorStore("query", false, err)
	}
	return topMatches(matches, topK), nil
}

func (s *boltStore) Delete(ctx context.Context, namespace string, ids []string) error {
	if err := checkNamespace("delete", namespace); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		space := tx.Bucket(bucketVectors).Bucket([]byte(namespace))
		if space == nil {
			return nil
		}
		for _, id := range ids {
			if err := space.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErr.VectorStore("delete", false, err)
	}
	return nil
}

func (s *boltStore) DeleteDocument(ctx context.Context, namespace, documentID string, fromIndex int) error {
	if err := checkNamespace("delete document", namespace); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		space := tx.Bucket(bucketVectors).Bucket([]byte(namespace))
		if space == nil {
			return nil
		}
		var stale [][]byte
		err := space.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Metadata.DocumentID == documentID && rec.Metadata.ChunkIndex >= fromIndex {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := space.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return appErr.VectorStore("delete document", false, err)
	}
	return nil
}

func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
