package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/response"

	"github.com/gin-gonic/gin"
)

// TimeoutMiddleware 为请求 context 设置超时，处理器未写响应时返回 504.
// timeout 返回值 <= 0 时不生效，每个请求读取一次以支持热更新.
func TimeoutMiddleware(timeout func() time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := timeout()
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			response.ErrorWithStatus(c, http.StatusGatewayTimeout, "request timeout", "")
			c.Abort()
		}
	}
}
