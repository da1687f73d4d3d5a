package model

// SourceChunk is the provenance of one retrieved chunk.
type SourceChunk struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Preview    string  `json:"preview"`
	Score      float32 `json:"score"`
}

type Answer struct {
	Reply        string        `json:"reply"`
	SourceChunks []SourceChunk `json:"source_chunks"`
	MatchCount   int           `json:"match_count"`
}

// ContextUsed reports whether the reply was generated from retrieved chunks.
func (a *Answer) ContextUsed() bool {
	return a.MatchCount > 0
}
