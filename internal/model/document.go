package model

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// CanStartProcessing reports whether a document in status s may enter processing.
func (s DocumentStatus) CanStartProcessing() bool {
	return s == DocumentStatusUploaded || s == DocumentStatusFailed
}

type Document struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	Filename    string         `json:"filename"`
	StorageKey  string         `json:"storage_key"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	ErrorMsg    string         `json:"error_msg,omitempty"`
	Ctime       int64          `json:"ctime"`
	Mtime       int64          `json:"mtime"`
}
