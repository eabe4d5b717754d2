package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moyuteach/lessongen/api/middleware"
	"github.com/moyuteach/lessongen/internal/service/export"
	"github.com/moyuteach/lessongen/internal/service/generation"
	"github.com/moyuteach/lessongen/pkg/logger"
)

const (
	wordContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	pptContentType  = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

type GenerationHandler struct {
	service  generation.Service
	exporter *export.Exporter
	logger   logger.Logger
}

func NewGenerationHandler(service generation.Service, exporter *export.Exporter, logger logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		service:  service,
		exporter: exporter,
		logger:   logger,
	}
}

// Create 同步跑完检索加生成, 生成慢是 LLM 决定的, 客户端需要等
func (h *GenerationHandler) Create(c *gin.Context) {
	var req generation.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	gen, err := h.service.Create(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		h.respondError(c, statusFor(err), "Failed to create generation", err)
		return
	}

	c.JSON(http.StatusCreated, gen)
}

// List 分页返回当前用户的生成历史
func (h *GenerationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	gens, total, err := h.service.List(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		h.respondError(c, statusFor(err), "Failed to list generations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": gens,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get 返回单条生成记录, 含正文和引用快照
func (h *GenerationHandler) Get(c *gin.Context) {
	gen, err := h.service.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, statusFor(err), "Failed to get generation", err)
		return
	}

	c.JSON(http.StatusOK, gen)
}

// Export 把生成结果渲染成 Word 或 PPT 附件
func (h *GenerationHandler) Export(c *gin.Context) {
	gen, err := h.service.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, statusFor(err), "Failed to get generation", err)
		return
	}

	format := export.Format(c.DefaultQuery("format", string(export.FormatWord)))
	fileName, data, err := h.exporter.Export(gen, format)
	if err != nil {
		h.respondError(c, statusFor(err), "Failed to export generation", err)
		return
	}

	contentType := wordContentType
	if format == export.FormatPPT {
		contentType = pptContentType
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(fileName)))
	c.Data(http.StatusOK, contentType, data)
}

func (h *GenerationHandler) respondError(c *gin.Context, status int, message string, err error) {
	respondError(c, h.logger, status, message, err)
}
