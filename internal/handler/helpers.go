package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docrag/internal/middleware"
	"github.com/xxxsen/docrag/internal/pkg/errcode"
	appErr "github.com/xxxsen/docrag/internal/pkg/errors"
	"github.com/xxxsen/docrag/internal/pkg/response"
)

func getTenantID(c *gin.Context) string {
	return middleware.TenantID(c)
}

func queryUint(c *gin.Context, name string, def uint) uint {
	value := c.Query(name)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return def
	}
	return uint(parsed)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("tenant_id", getTenantID(c)),
		zap.Error(err),
	)
	code, msg := errorCode(err)
	response.Error(c, code, msg)
}

func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		return errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrForbidden):
		return errcode.ErrForbidden, "forbidden"
	case errors.Is(err, appErr.ErrNotFound):
		return errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrInvalid):
		return errcode.ErrInvalid, "invalid request"
	case errors.Is(err, appErr.ErrConflict):
		return errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrUnavailable):
		return errcode.ErrAIUnavailable, "ai provider unavailable"
	}
	switch appErr.KindOf(err) {
	case appErr.KindTimeout:
		return errcode.ErrTimeout, "request timed out"
	case appErr.KindExtraction:
		return errcode.ErrInvalidFile, "document could not be read"
	case appErr.KindEmbedding, appErr.KindVectorStore, appErr.KindConsistency:
		return errcode.ErrRetrievalFailed, "retrieval failed"
	}
	return errcode.ErrInternal, "internal error"
}
