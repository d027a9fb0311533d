package middleware

import (
	"context"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/limiter"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/logging"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/response"

	"github.com/gin-gonic/gin"
)

// ConcurrencyLimit 用并发限流器保护昂贵路由，waitTimeout 内拿不到令牌返回 503.
func ConcurrencyLimit(l limiter.ConcurrencyLimiter, waitTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		acquireCtx := ctx
		if waitTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, waitTimeout)
			defer cancel()
		}

		if err := l.Acquire(acquireCtx); err != nil {
			logging.Warn(ctx, "http concurrency limit exceeded", "error", err)
			response.Error(c, limiter.ErrConcurrencyLimit)
			c.Abort()
			return
		}
		defer l.Release()

		c.Next()
	}
}
