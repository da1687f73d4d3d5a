package model

import "strconv"

// Chunk is a transient text segment produced during ingestion.
type Chunk struct {
	DocumentID string
	TenantID   string
	Index      int
	Text       string
}

// VectorID is the deterministic record id for a document chunk.
func VectorID(documentID string, index int) string {
	return documentID + "_" + strconv.Itoa(index)
}

func VectorIDs(documentID string, count int) []string {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, VectorID(documentID, i))
	}
	return ids
}
