package middleware

import (
	"github.com/zmatula/Fund-Analysis-Platform-sub000/metrics"

	"github.com/gin-gonic/gin"
)

// HTTPSizeMiddleware 记录请求体与响应体大小.
func HTTPSizeMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}

		path := routePath(c)
		if c.Request.ContentLength > 0 {
			m.HTTPRequestSizeBytes.WithLabelValues(c.Request.Method, path).Observe(float64(c.Request.ContentLength))
		}
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSizeBytes.WithLabelValues(c.Request.Method, path).Observe(float64(size))
		}
	}
}
