package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/docrag/internal/ai"
	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

type fakeDocRepo struct {
	mu       sync.Mutex
	docs     map[string]model.Document
	readyErr error
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[string]model.Document{}}
}

func (r *fakeDocRepo) key(tenantID, docID string) string {
	return tenantID + "/" + docID
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(doc.TenantID, doc.ID)
	if _, ok := r.docs[k]; ok {
		return appErr.ErrConflict
	}
	r.docs[k] = *doc
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[r.key(tenantID, docID)]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &doc, nil
}

func (r *fakeDocRepo) List(ctx context.Context, tenantID string, limit, offset uint) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Document{}
	for _, doc := range r.docs {
		if doc.TenantID == tenantID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) StartProcessing(ctx context.Context, tenantID, docID string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(tenantID, docID)
	doc, ok := r.docs[k]
	if !ok {
		return appErr.ErrNotFound
	}
	if !doc.Status.CanStartProcessing() {
		return appErr.ErrConflict
	}
	doc.Status = model.DocumentStatusProcessing
	doc.ChunkCount = 0
	doc.ErrorMsg = ""
	doc.Mtime = mtime
	r.docs[k] = doc
	return nil
}

func (r *fakeDocRepo) finish(tenantID, docID string, status model.DocumentStatus, count int, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(tenantID, docID)
	doc, ok := r.docs[k]
	if !ok || doc.Status != model.DocumentStatusProcessing {
		return appErr.ErrConflict
	}
	doc.Status = status
	doc.ChunkCount = count
	doc.ErrorMsg = msg
	r.docs[k] = doc
	return nil
}

func (r *fakeDocRepo) MarkReady(ctx context.Context, tenantID, docID string, chunkCount int, mtime int64) error {
	if r.readyErr != nil {
		return r.readyErr
	}
	return r.finish(tenantID, docID, model.DocumentStatusReady, chunkCount, "")
}

func (r *fakeDocRepo) MarkFailed(ctx context.Context, tenantID, docID, errMsg string, mtime int64) error {
	return r.finish(tenantID, docID, model.DocumentStatusFailed, 0, errMsg)
}

func (r *fakeDocRepo) Delete(ctx context.Context, tenantID, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(tenantID, docID)
	if _, ok := r.docs[k]; !ok {
		return appErr.ErrNotFound
	}
	delete(r.docs, k)
	return nil
}

func (r *fakeDocRepo) setStatus(tenantID, docID string, status model.DocumentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(tenantID, docID)
	doc := r.docs[k]
	doc.Status = status
	r.docs[k] = doc
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]model.IngestTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[string]model.IngestTask{}}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *model.IngestTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Get(ctx context.Context, tenantID, taskID string) (*model.IngestTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.TenantID != tenantID {
		return nil, appErr.ErrNotFound
	}
	return &task, nil
}

func (r *fakeTaskRepo) UpdateStatusIf(ctx context.Context, taskID string, from, to model.TaskStatus, mtime int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.Status != from {
		return false, nil
	}
	task.Status = to
	task.Mtime = mtime
	r.tasks[taskID] = task
	return true, nil
}

func (r *fakeTaskRepo) Finish(ctx context.Context, taskID string, status model.TaskStatus, errMsg string, chunkCount int, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.Status != model.TaskStatusRunning {
		return appErr.ErrConflict
	}
	task.Status = status
	task.ErrorMsg = errMsg
	task.ChunkCount = chunkCount
	task.Mtime = mtime
	r.tasks[taskID] = task
	return nil
}

func (r *fakeTaskRepo) ListByStatusBefore(ctx context.Context, status model.TaskStatus, before int64, limit uint) ([]model.IngestTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.IngestTask
	for _, task := range r.tasks {
		if task.Status == status && task.Mtime < before {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) status(taskID string) model.TaskStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[taskID].Status
}

type fakeLogRepo struct {
	mu    sync.Mutex
	items []model.MessageLog
	err   error
}

func (r *fakeLogRepo) Create(ctx context.Context, item *model.MessageLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, *item)
	return nil
}

// wordEmbedder gives every distinct word its own dimension, so only texts
// sharing words score above zero.
type wordEmbedder struct {
	mu      sync.Mutex
	dims    int
	vocab   map[string]int
	calls   int
	drop    bool
	err     error
	batches []int
}

func (e *wordEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.batches = append(e.batches, len(texts))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v := make([]float32, e.dims)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			v[e.slot(w)]++
		}
		out = append(out, v)
	}
	if e.drop && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *wordEmbedder) slot(word string) int {
	if e.vocab == nil {
		e.vocab = map[string]int{}
	}
	idx, ok := e.vocab[word]
	if !ok {
		idx = len(e.vocab) % e.dims
		e.vocab[word] = idx
	}
	return idx
}

func (e *wordEmbedder) ModelName() string { return "words" }

type fakeGenerator struct {
	mu    sync.Mutex
	calls []*ai.ChatRequest
	reply string
	block bool
}

func (g *fakeGenerator) Generate(ctx context.Context, req *ai.ChatRequest) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
