package model

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// IngestTask is the execution record of one background ingestion run.
type IngestTask struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	DocumentID string     `json:"document_id"`
	Status     TaskStatus `json:"status"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	Ctime      int64      `json:"ctime"`
	Mtime      int64      `json:"mtime"`
}

func (s TaskStatus) Finished() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}
