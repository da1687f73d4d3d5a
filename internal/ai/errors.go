package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"google.golang.org/genai"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

// StatusError is returned by the REST providers for non-2xx responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: %d %s: %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func statusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// isTransient reports whether err is rate limiting, a provider-side 5xx or a
// network failure.
func isTransient(err error) bool {
	if code, ok := statusOf(err); ok {
		return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classifyEmbedError(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *appErr.Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, appErr.ErrUnavailable) {
		return appErr.Embedding(op, false, err)
	}
	return appErr.Embedding(op, isTransient(err), err)
}
