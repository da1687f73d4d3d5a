package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

func TestOpenAIEmbedKeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"a", "b"}, req.Input)
		require.Equal(t, 3, req.Dimensions)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2,2,2]},{"index":0,"embedding":[1,1,1]}]}`))
	}))
	defer srv.Close()

	p, err := createOpenAIEmbedFactory(map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	vectors, err := p.Embed(context.Background(), &EmbedRequest{Model: "m", Texts: []string{"a", "b"}, Dimensions: 3})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 1, 1}, {2, 2, 2}}, vectors)
}

func TestOpenAIChatSendsSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "ctx", req.Messages[0].Content)
		require.Equal(t, "question", req.Messages[1].Content)
		require.Equal(t, 100, req.MaxTokens)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" answer "}}]}`))
	}))
	defer srv.Close()

	p, err := createOpenAIFactory(map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	out, err := p.Chat(context.Background(), &ChatRequest{Model: "m", System: "ctx", User: "question", MaxTokens: 100})
	require.NoError(t, err)
	require.Equal(t, "answer", out)
}

func TestOpenAIStatusIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	p, err := createOpenAIEmbedFactory(map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	e := NewEmbedder(p, EmbedderConfig{Model: "m", Dimensions: 3})
	_, err = e.EmbedBatch(context.Background(), []string{"a"}, TaskTypeDocument)
	require.Error(t, err)
	require.True(t, appErr.IsRetryable(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestOpenAIMissingKey(t *testing.T) {
	p, err := createOpenAIEmbedFactory(map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), &EmbedRequest{Model: "m", Texts: []string{"a"}})
	require.ErrorIs(t, err, appErr.ErrUnavailable)
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := NewEmbedProvider("nope", map[string]interface{}{})
	require.Error(t, err)
	p, err := NewChatProvider("OpenRouter", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "openrouter", p.Name())
}
