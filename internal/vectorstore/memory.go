package vectorstore

import (
	"context"
	"sync"

	"github.com/xxxsen/docrag/internal/model"
)

type memoryStore struct {
	mu     sync.RWMutex
	spaces map[string]map[string]model.VectorRecord
}

func init() {
	Register("memory", func(args interface{}, deps Deps) (Store, error) {
		return NewMemoryStore(), nil
	})
}

// NewMemoryStore returns a process-local store, used for tests and single
// node trials.
func NewMemoryStore() Store {
	return &memoryStore{spaces: make(map[string]map[string]model.VectorRecord)}
}

func (s *memoryStore) Upsert(ctx context.Context, namespace string, records []model.VectorRecord) error {
	if err := checkNamespace("upsert", namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	space, ok := s.spaces[namespace]
	if !ok {
		space = make(map[string]model.VectorRecord)
		s.spaces[namespace] = space
	}
	for _, rec := range records {
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		rec.Vector = vec
		space[rec.ID] = rec
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if err := checkQuery(namespace, topK); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	space := s.spaces[namespace]
	matches := make([]Match, 0, len(space))
	for id, rec := range space {
		matches = append(matches, Match{ID: id, Score: cosine(vector, rec.Vector), Metadata: rec.Metadata})
	}
	return topMatches(matches, topK), nil
}

func (s *memoryStore) Delete(ctx context.Context, namespace string, ids []string) error {
	if err := checkNamespace("delete", namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	space := s.spaces[namespace]
	for _, id := range ids {
		delete(space, id)
	}
	return nil
}

func (s *memoryStore) DeleteDocument(ctx context.Context, namespace, documentID string, fromIndex int) error {
	if err := checkNamespace("delete document", namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.spaces[namespace] {
		if rec.Metadata.DocumentID == documentID && rec.Metadata.ChunkIndex >= fromIndex {
			delete(s.spaces[namespace], id)
		}
	}
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}
