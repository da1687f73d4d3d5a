package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docrag/internal/model"
	"github.com/xxxsen/docrag/internal/pkg/response"
)

type TaskAPI interface {
	Get(ctx context.Context, tenantID, taskID string) (*model.IngestTask, error)
}

type TaskHandler struct {
	tasks TaskAPI
}

func NewTaskHandler(tasks TaskAPI) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), getTenantID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}
