// app/seenmw.go
package app

import (
	"log/slog"
	"net/http"

	"borrow_analytics/cache"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID 透传或生成请求 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RefreshThrottle 用 redis SETNX 限制刷新频率；lock 为 nil 时不限制
func RefreshThrottle(lock *cache.RefreshLock) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lock == nil {
			c.Next()
			return
		}
		ok, err := lock.Acquire(c.Request.Context())
		if err != nil {
			// redis 故障时不阻塞刷新
			slog.Warn("refresh lock", slog.Any("err", err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{"error": "refresh throttled"})
			return
		}
		c.Next()
		// 刷新失败则提前释放窗口
		if c.Writer.Status() >= http.StatusInternalServerError {
			_ = lock.Release(c.Request.Context())
		}
	}
}
