package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/contextx"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/response"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/gin-gonic/gin"
)

// Logger 每个请求一条访问日志. 5xx 记为 Error，4xx 记为 Warn.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		lvl := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			lvl = slog.LevelError
		case status >= http.StatusBadRequest:
			lvl = slog.LevelWarn
		}
		ctx := c.Request.Context()
		logger.Log(ctx, lvl, "http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"request_bytes", c.Request.ContentLength,
			"response_bytes", c.Writer.Size(),
			"request_id", contextx.GetRequestID(ctx),
		)
	}
}

// Recovery 把处理器中的 panic 转成 500 响应，并记录堆栈.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()
			logger.ErrorContext(ctx, "panic recovered",
				"panic", fmt.Sprint(r),
				"route", c.FullPath(),
				"request_id", contextx.GetRequestID(ctx),
				"stack", string(debug.Stack()),
			)
			response.Error(c, xerrors.Internal("internal server error", fmt.Errorf("panic: %v", r)))
			c.Abort()
		}()
		c.Next()
	}
}
