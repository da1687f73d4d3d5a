package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := Embedding("embed batch", true, fmt.Errorf("status 429"))
	wrapped := fmt.Errorf("ingest doc-1: %w", base)

	require.True(t, IsKind(wrapped, KindEmbedding))
	require.True(t, IsRetryable(wrapped))
	require.False(t, IsKind(wrapped, KindTimeout))
	require.Equal(t, "embedding", KindOf(wrapped).String())
}

func TestTimeoutUnwrapsContextError(t *testing.T) {
	err := Timeout("answer", context.DeadlineExceeded)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, IsRetryable(err))
}

func TestPlainErrorHasUnknownKind(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(fmt.Errorf("boom")))
	require.False(t, IsRetryable(nil))
	require.True(t, IsNotFound(fmt.Errorf("get: %w", ErrNotFound)))
}
