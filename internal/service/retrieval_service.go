package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/ai"
	"github.com/xxxsen/docrag/internal/model"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/vectorstore"
)

const (
	DefaultTopK        = 5
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultTimeout     = 30 * time.Second
	previewRunes       = 200
	docPrefixRunes     = 8
)

const noContextReply = "I don't have any relevant information in the documents to answer this question. " +
	"Please make sure documents are uploaded and processed in this workspace."

const systemPromptTemplate = `You are an AI assistant for this organization.
You have access to the organization's documents and knowledge base.

Instructions:
- Only use the provided context to answer questions
- If the answer is not found in the provided context, say "Information not available in the documents."
- Be concise and accurate
- Cite relevant information when possible
- If asked about something outside the context, politely decline and suggest checking the documents

Context from documents:
%s`

type RetrievalConfig struct {
	// Temperature defaults to 0.7 when nil. Zero is a valid setting.
	Temperature *float32
	MaxTokens   int
	Timeout     time.Duration
}

// RetrievalService answers a tenant question from the tenant's own indexed
// chunks.
type RetrievalService struct {
	embedder  ai.IEmbedder
	vectors   vectorstore.Store
	generator ai.IGenerator
	cfg       RetrievalConfig
}

func NewRetrievalService(embedder ai.IEmbedder, vectors vectorstore.Store, generator ai.IGenerator, cfg RetrievalConfig) *RetrievalService {
	if cfg.Temperature == nil {
		temperature := float32(defaultTemperature)
		cfg.Temperature = &temperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &RetrievalService{embedder: embedder, vectors: vectors, generator: generator, cfg: cfg}
}

// Answer runs embed, search and generation under a single deadline. When the
// deadline passes the in-flight call is abandoned and a timeout error is
// returned.
func (s *RetrievalService) Answer(ctx context.Context, tenantID, question string, topK int, modelName string) (*model.Answer, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type result struct {
		answer *model.Answer
		err    error
	}
	done := make(chan result, 1)
	go func() {
		answer, err := s.answer(ctx, tenantID, question, topK, modelName)
		done <- result{answer: answer, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, appErr.Timeout("answer", ctx.Err())
		}
		return res.answer, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logutil.GetLogger(ctx).Warn("retrieval timed out", zap.String("tenant_id", tenantID), zap.Duration("timeout", s.cfg.Timeout))
			return nil, appErr.Timeout("answer", ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func (s *RetrievalService) answer(ctx context.Context, tenantID, question string, topK int, modelName string) (*model.Answer, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID))
	vector, err := ai.EmbedOne(ctx, s.embedder, question, ai.TaskTypeQuery)
	if err != nil {
		logger.Error("embed question failed", zap.Error(err))
		return nil, err
	}
	matches, err := s.vectors.Query(ctx, tenantID, vector, topK)
	if err != nil {
		logger.Error("query vectors failed", zap.Error(err))
		return nil, err
	}
	if len(matches) == 0 {
		return &model.Answer{Reply: noContextReply, SourceChunks: []model.SourceChunk{}, MatchCount: 0}, nil
	}
	reply, err := s.generator.Generate(ctx, &ai.ChatRequest{
		Model:       modelName,
		System:      BuildSystemPrompt(matches),
		User:        question,
		Temperature: *s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		logger.Error("generate answer failed", zap.Error(err))
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	sources := make([]model.SourceChunk, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, model.SourceChunk{
			DocumentID: m.Metadata.DocumentID,
			ChunkIndex: m.Metadata.ChunkIndex,
			Preview:    preview(m.Metadata.Text),
			Score:      m.Score,
		})
	}
	logger.Debug("answer generated", zap.Int("match_count", len(matches)))
	return &model.Answer{Reply: reply, SourceChunks: sources, MatchCount: len(matches)}, nil
}

// BuildSystemPrompt renders the matches, in rank order, into the system
// instruction.
func BuildSystemPrompt(matches []vectorstore.Match) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, fmt.Sprintf("[Document %s... - Chunk %d]\n%s",
			truncateRunes(m.Metadata.DocumentID, docPrefixRunes), m.Metadata.ChunkIndex, m.Metadata.Text))
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(blocks, "\n\n"))
}

func preview(text string) string {
	return truncateRunes(text, previewRunes) + "..."
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
