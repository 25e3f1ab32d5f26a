package http

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ragchat/internal/config"
	"ragchat/internal/engine"
	"ragchat/internal/extract"
	"ragchat/internal/transport/http/handler"
)

func NewRouter(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) *gin.Engine {
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
	}))

	extractor := extract.New(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap, logger.With("component", "extract"))

	healthHandler := handler.NewHealthHandler(eng)
	chatHandler := handler.NewChatHandler(eng)
	documentHandler := handler.NewDocumentHandler(eng, extractor, logger.With("component", "upload"))

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "RAG Chatbot API", "status": "running"})
	})
	router.GET("/health", healthHandler.Check)

	api := router.Group("/api")
	api.POST("/chat", chatHandler.Chat)
	api.POST("/upload-document", documentHandler.Upload)
	api.GET("/knowledge-base/status", healthHandler.KnowledgeBaseStatus)

	return router
}
