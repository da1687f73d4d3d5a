package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/errcode"
	"github.com/xxxsen/docrag/internal/pkg/response"
)

type ChatAPI interface {
	Query(ctx context.Context, tenantID, question string) (*model.Answer, error)
}

type ChatHandler struct {
	chat ChatAPI
}

func NewChatHandler(chat ChatAPI) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Question string `json:"question"`
}

func (h *ChatHandler) Query(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.chat.Query(c.Request.Context(), getTenantID(c), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}
