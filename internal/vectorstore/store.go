package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

// Match is one ranked hit of a similarity query. Score grows with similarity;
// for cosine stores the maximum is 1.
type Match struct {
	ID       string               `json:"id"`
	Score    float32              `json:"score"`
	Metadata model.VectorMetadata `json:"metadata"`
}

// Store keeps vector records in isolated namespaces, one per tenant. No
// operation reads or writes outside the namespace it is given.
type Store interface {
	Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, namespace string, ids []string) error
	// DeleteDocument removes every record of documentID whose chunk index is
	// at least fromIndex.
	DeleteDocument(ctx context.Context, namespace, documentID string, fromIndex int) error
	Close() error
}

// Deps carries shared handles a store may reuse instead of opening its own.
type Deps struct {
	DB *sql.DB
}

type Factory func(args interface{}, deps Deps) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(name string, args interface{}, deps Deps) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("vector_store.type is required"))
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, appErr.VectorStore("config", false, fmt.Errorf("unsupported vector store type: %s", name))
	}
	return factory(args, deps)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector store config: %w", err)
	}
	return nil
}

func checkNamespace(op, namespace string) error {
	if strings.TrimSpace(namespace) == "" {
		return appErr.VectorStore(op, false, fmt.Errorf("namespace is required"))
	}
	return nil
}

// checkQuery validates the arguments shared by every Query implementation.
func checkQuery(namespace string, topK int) error {
	if err := checkNamespace("query", namespace); err != nil {
		return err
	}
	if topK <= 0 {
		return appErr.VectorStore("query", false, fmt.Errorf("top k must be positive, got %d", topK))
	}
	return nil
}
