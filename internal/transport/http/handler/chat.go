package handler

import (
	"github.com/gin-gonic/gin"

	"ragchat/internal/engine"
)

type ChatHandler struct {
	engine *engine.Engine
}

type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
	UseRAG         *bool  `json:"use_rag"`
}

// ChatResponse mirrors the public chat contract: sources is null when
// retrieval contributed nothing.
type ChatResponse struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

func NewChatHandler(eng *engine.Engine) *ChatHandler {
	return &ChatHandler{engine: eng}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	// Generate absorbs backend failures into response text, so this
	// endpoint has no 500 path of its own.
	text, sources := h.engine.Generate(c.Request.Context(), req.Message, req.ConversationID, useRAG)

	c.JSON(200, ChatResponse{
		Response:       text,
		Sources:        sources,
		ConversationID: req.ConversationID,
	})
}
