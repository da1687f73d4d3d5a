package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/vectorstore"
)

func seedChunks(t *testing.T, e *wordEmbedder, store vectorstore.Store, tenantID, docID string, texts ...string) {
	t.Helper()
	vectors, err := e.EmbedBatch(context.Background(), texts, "")
	require.NoError(t, err)
	records := make([]model.VectorRecord, 0, len(texts))
	for i, text := range texts {
		records = append(records, model.NewVectorRecord(model.Chunk{DocumentID: docID, TenantID: tenantID, Index: i, Text: text}, vectors[i]))
	}
	require.NoError(t, store.Upsert(context.Background(), tenantID, records))
}

func TestRetrievalNoMatchesSkipsGenerator(t *testing.T) {
	embedder := &wordEmbedder{dims: 256}
	gen := &fakeGenerator{reply: "should not be used"}
	svc := NewRetrievalService(embedder, vectorstore.NewMemoryStore(), gen, RetrievalConfig{})

	answer, err := svc.Answer(context.Background(), "t1", "what is the refund policy?", 5, "")
	require.NoError(t, err)
	require.Equal(t, noContextReply, answer.Reply)
	require.Equal(t, 0, answer.MatchCount)
	require.NotNil(t, answer.SourceChunks)
	require.Empty(t, answer.SourceChunks)
	require.False(t, answer.ContextUsed())
	require.Equal(t, 0, gen.callCount())
}

func TestRetrievalBuildsPromptFromTenantChunks(t *testing.T) {
	embedder := &wordEmbedder{dims: 256}
	store := vectorstore.NewMemoryStore()
	seedChunks(t, embedder, store, "t1", "0123456789abcdef",
		"refund requests are accepted within 30 days",
		"the office is closed on public holidays",
	)
	seedChunks(t, embedder, store, "t2", "other-doc", "secret text of another tenant")
	gen := &fakeGenerator{reply: "Refunds are accepted within 30 days."}
	svc := NewRetrievalService(embedder, store, gen, RetrievalConfig{})

	answer, err := svc.Answer(context.Background(), "t1", "refund requests", 1, "gpt-test")
	require.NoError(t, err)
	require.Equal(t, "Refunds are accepted within 30 days.", answer.Reply)
	require.Equal(t, 1, answer.MatchCount)
	require.True(t, answer.ContextUsed())
	require.Len(t, answer.SourceChunks, 1)
	src := answer.SourceChunks[0]
	require.Equal(t, "0123456789abcdef", src.DocumentID)
	require.Equal(t, 0, src.ChunkIndex)
	require.Equal(t, "refund requests are accepted within 30 days...", src.Preview)

	require.Equal(t, 1, gen.callCount())
	req := gen.calls[0]
	require.Equal(t, "gpt-test", req.Model)
	require.Equal(t, "refund requests", req.User)
	require.Equal(t, float32(0.7), req.Temperature)
	require.Equal(t, 1000, req.MaxTokens)
	require.Contains(t, req.System, "[Document 01234567... - Chunk 0]\nrefund requests are accepted within 30 days")
	require.NotContains(t, req.System, "another tenant")
	require.NotContains(t, req.System, "public holidays")
}

func TestRetrievalKeepsZeroTemperature(t *testing.T) {
	embedder := &wordEmbedder{dims: 256}
	store := vectorstore.NewMemoryStore()
	seedChunks(t, embedder, store, "t1", "doc-1", "refund requests are accepted within 30 days")
	gen := &fakeGenerator{reply: "ok"}
	zero := float32(0)
	svc := NewRetrievalService(embedder, store, gen, RetrievalConfig{Temperature: &zero})

	_, err := svc.Answer(context.Background(), "t1", "refund requests", 1, "")
	require.NoError(t, err)
	require.Equal(t, 1, gen.callCount())
	require.Equal(t, float32(0), gen.calls[0].Temperature)
}

func TestRetrievalTimeout(t *testing.T) {
	embedder := &wordEmbedder{dims: 256}
	store := vectorstore.NewMemoryStore()
	seedChunks(t, embedder, store, "t1", "doc-1", "slow answer text")
	gen := &fakeGenerator{block: true}
	svc := NewRetrievalService(embedder, store, gen, RetrievalConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := svc.Answer(context.Background(), "t1", "slow answer", 5, "")
	require.Error(t, err)
	require.True(t, appErr.IsKind(err, appErr.KindTimeout))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestRetrievalEmbedFailure(t *testing.T) {
	embedder := &wordEmbedder{dims: 256, err: appErr.Embedding("embed batch", false, appErr.ErrUnavailable)}
	svc := NewRetrievalService(embedder, vectorstore.NewMemoryStore(), &fakeGenerator{}, RetrievalConfig{})

	_, err := svc.Answer(context.Background(), "t1", "anything", 5, "")
	require.True(t, appErr.IsKind(err, appErr.KindEmbedding))
}

func TestBuildSystemPromptKeepsRankOrder(t *testing.T) {
	prompt := BuildSystemPrompt([]vectorstore.Match{
		{Score: 0.9, Metadata: model.VectorMetadata{DocumentID: "abcdefghijkl", ChunkIndex: 3, Text: "first"}},
		{Score: 0.5, Metadata: model.VectorMetadata{DocumentID: "short", ChunkIndex: 0, Text: "second"}},
	})
	require.True(t, strings.HasSuffix(prompt, "[Document abcdefgh... - Chunk 3]\nfirst\n\n[Document short... - Chunk 0]\nsecond"))
	require.True(t, strings.HasPrefix(prompt, "You are an AI assistant"))
}

func TestPreviewTruncatesRunes(t *testing.T) {
	text := strings.Repeat("é", 250)
	p := preview(text)
	require.Equal(t, strings.Repeat("é", 200)+"...", p)
	require.Equal(t, "ok...", preview("ok"))
}
