package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/errcode"
	"github.com/xxxsen/docrag/internal/pkg/response"
	"github.com/xxxsen/docrag/internal/service"
)

const (
	defaultListLimit   = 20
	maxListLimit       = 100
	defaultUploadLimit = 20 * 1024 * 1024
)

// DocumentAPI is satisfied by *service.DocumentService.
type DocumentAPI interface {
	Upload(ctx context.Context, tenantID string, in service.UploadInput) (*model.Document, *model.IngestTask, error)
	Get(ctx context.Context, tenantID, docID string) (*model.Document, error)
	List(ctx context.Context, tenantID string, limit, offset uint) ([]model.Document, error)
	Process(ctx context.Context, tenantID, docID string) (*model.IngestTask, error)
	Delete(ctx context.Context, tenantID, docID string) error
}

type DocumentHandler struct {
	documents DocumentAPI
	maxUpload int64
}

func NewDocumentHandler(documents DocumentAPI, maxUpload int64) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = defaultUploadLimit
	}
	return &DocumentHandler{documents: documents, maxUpload: maxUpload}
}

type uploadResponse struct {
	Document *model.Document   `json:"document"`
	Task     *model.IngestTask `json:"task,omitempty"`
}

type listResponse struct {
	Items []model.Document `json:"items"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	// multipart framing needs a little room beyond the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1024*1024)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, errcode.ErrInvalidFile, "file too large, max "+formatUploadLimit(h.maxUpload))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > h.maxUpload {
		response.Error(c, errcode.ErrInvalidFile, "file too large, max "+formatUploadLimit(h.maxUpload))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	contentType, err := uploadContentType(file, opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	autoProcess := true
	if value := c.PostForm("auto_process"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid auto_process")
			return
		}
		autoProcess = parsed
	}
	doc, task, err := h.documents.Upload(c.Request.Context(), getTenantID(c), service.UploadInput{
		Filename:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Body:        opened,
		AutoProcess: autoProcess,
	})
	if err != nil {
		if doc == nil {
			handleError(c, err)
			return
		}
		// stored but not queued, the caller can retry processing
		response.Success(c, uploadResponse{Document: doc})
		return
	}
	response.Success(c, uploadResponse{Document: doc, Task: task})
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := queryUint(c, "limit", defaultListLimit)
	if limit == 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryUint(c, "offset", 0)
	docs, err := h.documents.List(c.Request.Context(), getTenantID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.Success(c, listResponse{Items: docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Process(c *gin.Context) {
	task, err := h.documents.Process(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), getTenantID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

// uploadContentType trusts the part header unless it is missing or generic,
// then sniffs the first bytes and rewinds.
func uploadContentType(file *multipart.FileHeader, body io.ReadSeeker) (string, error) {
	ct := strings.TrimSpace(file.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}
	buf := make([]byte, 512)
	read, err := body.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}

func formatUploadLimit(bytes int64) string {
	const mb = 1024 * 1024
	if bytes <= 0 {
		return "0MB"
	}
	return strconv.FormatInt(max(bytes/mb, 1), 10) + "MB"
}
