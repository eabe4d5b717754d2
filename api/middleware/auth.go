package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// UserAuth 要求请求带 X-User-Id 头, 由前置网关在鉴权后注入
func UserAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   http.StatusText(http.StatusUnauthorized),
				"message": "Missing X-User-Id header",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID 读取鉴权中间件写入的用户标识
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
