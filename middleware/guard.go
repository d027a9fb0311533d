package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/limiter"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/response"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 拒绝超过 limit 字节的请求体. 声明长度超限直接返回 413，
// 未声明长度的请求在读取时截断. limit <= 0 时不限制.
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	detail := "at most " + strconv.FormatInt(limit, 10) + " bytes"
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "request body too large", detail)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// RateLimitMiddleware 按客户端 IP 限流，超限返回 429 并带 Retry-After.
// 限流器出错时放行.
func RateLimitMiddleware(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()
		ok, err := l.Allow(ctx, ip)
		if err != nil {
			slog.ErrorContext(ctx, "rate limiter failed, request let through", "client_ip", ip, "error", err)
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", "1")
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many forecast requests", "client "+ip+" exceeded its request rate")
			c.Abort()
			return
		}
		c.Next()
	}
}
