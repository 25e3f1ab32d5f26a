package handler

import (
	"github.com/gin-gonic/gin"

	"ragchat/internal/engine"
)

type HealthHandler struct {
	engine *engine.Engine
}

func NewHealthHandler(eng *engine.Engine) *HealthHandler {
	return &HealthHandler{engine: eng}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":                "healthy",
		"rag_ready":             h.engine.Ready(),
		"llm_configured":        h.engine.LLMBound(),
		"embeddings_configured": h.engine.EmbeddingsBound(),
	})
}

func (h *HealthHandler) KnowledgeBaseStatus(c *gin.Context) {
	c.JSON(200, gin.H{
		"ready":              h.engine.Ready(),
		"vector_store_ready": h.engine.IndexBound(),
		"documents_count":    h.engine.DocumentCount(c.Request.Context()),
	})
}
