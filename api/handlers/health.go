package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/moyuteach/lessongen/pkg/logger"
)

// Pinger 是健康检查需要的最小 Mongo 客户端能力
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type HealthHandler struct {
	mongo  Pinger
	logger logger.Logger
}

func NewHealthHandler(mongoClient Pinger, logger logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongo:  mongoClient,
		logger: logger,
	}
}

// Healthz 存活探针, 顺带探测 Mongo 连接
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.mongo.Ping(ctx, nil); err != nil {
		h.logger.Warn("health check failed", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"mongo":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
