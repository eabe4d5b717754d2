package handlers

import (
    "fmt"
    "net/http"
    "net/url"
    "strconv"

    "github.com/gin-gonic/gin"

    "github.com/moyuteach/lessongen/api/middleware"
    "github.com/moyuteach/lessongen/internal/service/document"
    "github.com/moyuteach/lessongen/pkg/logger"
)

type DocumentHandler struct {
    service document.Service
    logger  logger.Logger
}

func NewDocumentHandler(service document.Service, logger logger.Logger) *DocumentHandler {
    return &DocumentHandler{
        service: service,
        logger:  logger,
    }
}

// Upload 接收 multipart 上传并登记解析任务
func (h *DocumentHandler) Upload(c *gin.Context) {
    file, header, err := c.Request.FormFile("file")
    if err != nil {
        h.respondError(c, http.StatusBadRequest, "Invalid file upload", err)
        return
    }
    defer file.Close()

    doc, err := h.service.Upload(c.Request.Context(), middleware.UserID(c), file, header)
    if err != nil {
        h.respondError(c, statusFor(err), "Failed to upload document", err)
        return
    }

    c.JSON(http.StatusCreated, doc)
}

// List 分页返回当前用户的文档
func (h *DocumentHandler) List(c *gin.Context) {
    page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
    limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

    docs, total, err := h.service.List(c.Request.Context(), middleware.UserID(c), page, limit)
    if err != nil {
        h.respondError(c, statusFor(err), "Failed to list documents", err)
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "items": docs,
        "total": total,
        "page":  page,
        "limit": limit,
    })
}

// Get 返回单个文档的元数据, 包括处理状态和错误信息
func (h *DocumentHandler) Get(c *gin.Context) {
    doc, err := h.service.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
    if err != nil {
        h.respondError(c, statusFor(err), "Failed to get document", err)
        return
    }

    c.JSON(http.StatusOK, doc)
}

// Download 以附件形式回传原始文件
func (h *DocumentHandler) Download(c *gin.Context) {
    result, err := h.service.Download(c.Request.Context(), middleware.UserID(c), c.Param("id"))
    if err != nil {
        h.respondError(c, statusFor(err), "Failed to download document", err)
        return
    }
    defer result.Reader.Close()

    contentType := result.MimeType
    if contentType == "" {
        contentType = "application/octet-stream"
    }

    // 文件名多为中文, 按 RFC 5987 编码
    c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(result.FileName)))
    c.DataFromReader(http.StatusOK, result.Size, contentType, result.Reader, nil)
}

// Delete 级联删除文档及其切片和存储对象
func (h *DocumentHandler) Delete(c *gin.Context) {
    id := c.Param("id")
    if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
        h.respondError(c, statusFor(err), "Failed to delete document", err)
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "message": "Document deleted successfully",
        "id":      id,
    })
}

func (h *DocumentHandler) respondError(c *gin.Context, status int, message string, err error) {
    respondError(c, h.logger, status, message, err)
}
