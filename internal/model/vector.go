package model

type VectorMetadata struct {
	TenantID   string `json:"tenant_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

type VectorRecord struct {
	ID       string         `json:"id"`
	Vector   []float32      `json:"vector"`
	Metadata VectorMetadata `json:"metadata"`
}

func NewVectorRecord(chunk Chunk, vector []float32) VectorRecord {
	return VectorRecord{
		ID:     VectorID(chunk.DocumentID, chunk.Index),
		Vector: vector,
		Metadata: VectorMetadata{
			TenantID:   chunk.TenantID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
		},
	}
}
