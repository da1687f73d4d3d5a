package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
)

var errNoText = errors.New("source yields no text")

type pdfExtractor struct{}

func (e *pdfExtractor) Extract(ctx context.Context, src io.ReadSeeker) (text string, err error) {
	logger := logutil.GetLogger(ctx)
	data, err := readAll(src)
	if err != nil {
		return "", appErr.Extraction("read pdf", err)
	}
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = appErr.Extraction("parse pdf", fmt.Errorf("%v", r))
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", appErr.Extraction("open pdf", err)
	}
	pageCount := reader.NumPage()
	logger.Debug("pdf opened", zap.Int("pages", pageCount))
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", appErr.Extraction(fmt.Sprintf("read pdf page %d", i), err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		pages = append(pages, content)
	}
	if len(pages) == 0 {
		return "", appErr.Extraction("extract pdf", errNoText)
	}
	text = strings.Join(pages, "\n")
	logger.Debug("pdf text extracted", zap.Int("pages_with_text", len(pages)), zap.Int("chars", len(text)))
	return text, nil
}
