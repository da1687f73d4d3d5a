package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"unicode/utf8"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

type plainExtractor struct{}

func (e *plainExtractor) Extract(ctx context.Context, src io.ReadSeeker) (string, error) {
	data, err := readAll(src)
	if err != nil {
		return "", appErr.Extraction("read text", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", appErr.Extraction("extract text", errors.New("source is not valid utf-8"))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", appErr.Extraction("extract text", errNoText)
	}
	return string(data), nil
}
