package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragchat/internal/engine"
	"ragchat/internal/extract"
	"ragchat/internal/transport/http/response"
)

const maxUploadSize = 50 << 20 // 50 MB

type DocumentHandler struct {
	engine    *engine.Engine
	extractor *extract.Extractor
	logger    *slog.Logger
}

func NewDocumentHandler(eng *engine.Engine, extractor *extract.Extractor, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{engine: eng, extractor: extractor, logger: logger}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "no file provided")
		return
	}
	if fileHeader.Filename == "" {
		badRequest(c, "no filename provided")
		return
	}
	if fileHeader.Size > maxUploadSize {
		badRequest(c, "file too large, maximum size is 50MB")
		return
	}
	if fileHeader.Size == 0 {
		badRequest(c, "file is empty")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "open upload failed")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}
	if len(content) > maxUploadSize {
		badRequest(c, "file too large, maximum size is 50MB")
		return
	}

	h.logger.Info("processing upload", "file", fileHeader.Filename, "bytes", len(content))

	chunks, err := h.extractor.Extract(fileHeader.Filename, content)
	if err != nil {
		var extractionErr *extract.ExtractionError
		switch {
		case errors.Is(err, extract.ErrUnsupportedFormat):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
		case errors.As(err, &extractionErr):
			response.Error(c, http.StatusBadRequest, response.CodeExtractionFailed, err.Error())
		default:
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		}
		return
	}
	if len(chunks) == 0 {
		badRequest(c, "no text could be extracted from the document")
		return
	}

	if !h.engine.Ready() {
		h.logger.Warn("engine not ready, chunks prepared but not indexed", "file", fileHeader.Filename)
		c.JSON(200, gin.H{
			"status":  "warning",
			"message": fmt.Sprintf("Document processed into %d chunks, but not added to the knowledge base. Please configure an LLM first.", len(chunks)),
			"chunks":  len(chunks),
		})
		return
	}

	if err := h.engine.Ingest(c.Request.Context(), fileHeader.Filename, chunks); err != nil {
		h.logger.Error("indexing failed", "file", fileHeader.Filename, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeIndexWriteFailed, "adding document to knowledge base failed")
		return
	}

	c.JSON(200, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Document processed and added to knowledge base. %d chunks created.", len(chunks)),
		"chunks":  len(chunks),
	})
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, message)
}
