package routes

import (
    "github.com/gin-gonic/gin"

    "github.com/moyuteach/lessongen/api/handlers"
    "github.com/moyuteach/lessongen/api/middleware"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
    // 全局中间件
    r.Use(middleware.CORS())

    // API 版本组
    v1 := r.Group("/api/v1")

    // 健康检查放在鉴权之外, 探针不带用户头
    v1.GET("/healthz", h.Health.Healthz)

    authed := v1.Group("", middleware.UserAuth())

    // 文档路由组
    docs := authed.Group("/documents")
    {
        docs.POST("", h.Document.Upload)
        docs.GET("", h.Document.List)
        docs.GET("/:id", h.Document.Get)
        docs.GET("/:id/download", h.Document.Download)
        docs.DELETE("/:id", h.Document.Delete)
    }

    // 生成路由组
    gens := authed.Group("/generations")
    {
        gens.POST("", h.Generation.Create)
        gens.GET("", h.Generation.List)
        gens.GET("/:id", h.Generation.Get)
        gens.GET("/:id/export", h.Generation.Export)
    }
}
