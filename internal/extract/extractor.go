package extract

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

const (
	KindPDF      = "pdf"
	KindMarkdown = "markdown"
	KindText     = "text"
)

// Extractor turns a raw source into plain text.
type Extractor interface {
	Extract(ctx context.Context, src io.ReadSeeker) (string, error)
}

type Registry struct {
	mu    sync.RWMutex
	items map[string]Extractor
}

func NewRegistry() *Registry {
	r := &Registry{items: make(map[string]Extractor)}
	r.Register(KindPDF, &pdfExtractor{})
	r.Register(KindMarkdown, &markdownExtractor{})
	r.Register(KindText, &plainExtractor{})
	return r
}

func (r *Registry) Register(kind string, e Extractor) {
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" || e == nil {
		return
	}
	r.mu.Lock()
	r.items[key] = e
	r.mu.Unlock()
}

func (r *Registry) Extract(ctx context.Context, kind string, src io.ReadSeeker) (string, error) {
	r.mu.RLock()
	e := r.items[strings.ToLower(kind)]
	r.mu.RUnlock()
	if e == nil {
		return "", appErr.Extraction("extract", fmt.Errorf("unsupported source kind: %q", kind))
	}
	return e.Extract(ctx, src)
}

// Supported reports whether an upload with this content type or filename
// maps to a known extractor without falling back to the default.
func Supported(contentType, filename string) bool {
	ct := normalizeContentType(contentType)
	switch ct {
	case "application/pdf", "text/markdown", "text/x-markdown":
		return true
	}
	if kindByExt(filename) != "" {
		return true
	}
	return strings.HasPrefix(ct, "text/")
}

// DetectKind picks an extractor kind from the upload's content type, falling
// back to the filename extension.
func DetectKind(contentType, filename string) string {
	ct := normalizeContentType(contentType)
	switch ct {
	case "application/pdf":
		return KindPDF
	case "text/markdown", "text/x-markdown":
		return KindMarkdown
	}
	if kind := kindByExt(filename); kind != "" {
		return kind
	}
	if strings.HasPrefix(ct, "text/") {
		return KindText
	}
	return KindPDF
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}

func kindByExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".md", ".markdown":
		return KindMarkdown
	case ".txt", ".text", ".log", ".csv":
		return KindText
	}
	return ""
}

func readAll(src io.ReadSeeker) ([]byte, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(src)
}
