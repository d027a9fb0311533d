package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/contextx"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/limiter"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestIDPropagatesHeaderAndContext(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	var seen string
	engine.GET("/x", func(c *gin.Context) {
		seen = contextx.GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := serve(engine, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "abc-123", seen)

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, w.Header().Get(HeaderXRequestID), seen)
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	engine := gin.New()
	engine.Use(RateLimitMiddleware(limiter.NewKeyedLimiter(rate.Limit(0.001), 1, time.Minute)))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestMaxBodyBytes(t *testing.T) {
	engine := gin.New()
	engine.Use(MaxBodyBytes(8))
	engine.POST("/x", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(engine, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	w = serve(engine, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)

	// 未声明长度时在读取阶段截断.
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789"))
	req.ContentLength = -1
	assert.Equal(t, http.StatusRequestEntityTooLarge, serve(engine, req).Code)

	unlimited := gin.New()
	unlimited.Use(MaxBodyBytes(0))
	unlimited.POST("/x", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, "%d", len(b))
	})
	w = serve(unlimited, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("x", 1024))))
	assert.Equal(t, "1024", w.Body.String())
}

func TestRecoveryAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	engine := gin.New()
	engine.Use(Logger(logger), Recovery(logger))
	engine.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"status":500`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := metrics.NewMetrics("middleware-test")
	engine := gin.New()
	engine.Use(HTTPMetricsMiddlewareWithOptions(m, MetricsOptions{SkipPaths: []string{"/healthz"}}), HTTPSizeMiddleware(m))
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/v1/forecasts", func(c *gin.Context) { c.String(http.StatusCreated, "created") })

	serve(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	serve(engine, httptest.NewRequest(http.MethodPost, "/v1/forecasts", strings.NewReader("{}")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/v1/forecasts", "201")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPResponseSizeBytes))
}

func TestTimeoutMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(TimeoutMiddleware(func() time.Duration { return 5 * time.Millisecond }))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestConcurrencyLimit(t *testing.T) {
	sem := limiter.NewSemaphoreLimiter(1)
	engine := gin.New()
	engine.Use(ConcurrencyLimit(sem, time.Millisecond))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.NoError(t, sem.Acquire(context.Background()))
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "simulation slots exhausted")
	sem.Release()
	assert.Equal(t, http.StatusOK, serve(engine, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
