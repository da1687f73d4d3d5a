package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docrag/internal/middleware"
)

type RouterDeps struct {
	Documents  *DocumentHandler
	Tasks      *TaskHandler
	Chat       *ChatHandler
	JWTSecret  []byte
	ChatLimit  int
	ChatWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/documents", deps.Documents.Upload)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.POST("/documents/:id/process", deps.Documents.Process)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.GET("/tasks/:id", deps.Tasks.Get)

	authGroup.POST("/chat/query", middleware.RateLimit(deps.ChatLimit, deps.ChatWindow), deps.Chat.Query)
}
