package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyuteach/lessongen/internal/service/document"
	"github.com/moyuteach/lessongen/internal/service/export"
	"github.com/moyuteach/lessongen/internal/service/generation"
	"github.com/moyuteach/lessongen/internal/store"
	"github.com/moyuteach/lessongen/pkg/logger"
)

type Handlers struct {
	Document   *DocumentHandler
	Generation *GenerationHandler
	Health     *HealthHandler
}

func NewHandlers(
	documentService document.Service,
	generationService generation.Service,
	exporter *export.Exporter,
	mongoClient Pinger,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document:   NewDocumentHandler(documentService, logger),
		Generation: NewGenerationHandler(generationService, exporter, logger),
		Health:     NewHealthHandler(mongoClient, logger),
	}
}

// ErrorResponse 统一的错误响应体
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor 把服务层的哨兵错误翻译成 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrInvalidUpload),
		errors.Is(err, generation.ErrInvalidRequest),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, log logger.Logger, status int, message string, err error) {
	log.Error(message,
		logger.String("path", c.Request.URL.Path),
		logger.Error(err),
	)
	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
