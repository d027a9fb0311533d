package middleware

import (
	"github.com/zmatula/Fund-Analysis-Platform-sub000/contextx"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/idgen"

	"github.com/gin-gonic/gin"
)

// HeaderXRequestID 请求 ID 头.
const HeaderXRequestID = "X-Request-ID"

// RequestID 透传或生成请求 ID，写入 context 与响应头.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}

		ctx := contextx.WithRequestID(c.Request.Context(), requestID)
		ctx = contextx.WithIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
