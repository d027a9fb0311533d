package forecast

import (
	"errors"
	"net/http"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/metrics"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/response"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/gin-gonic/gin"
)

// CreateForecastRequest POST /v1/forecasts 请求体.
type CreateForecastRequest struct {
	Prices  []PriceInput `json:"prices"  binding:"required,min=2,dive"`
	Options Request      `json:"options"`
}

// Handler 预测服务的 HTTP 入口.
type Handler struct {
	svc         *Service
	metrics     *metrics.Metrics
	metricsPath string
	version     string
	started     time.Time
}

// NewHandler 创建 Handler. m 为 nil 时不暴露指标路由.
func NewHandler(svc *Service, m *metrics.Metrics, metricsPath, version string) *Handler {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Handler{
		svc:         svc,
		metrics:     m,
		metricsPath: metricsPath,
		version:     version,
		started:     time.Now(),
	}
}

// Register 注册路由. heavy 只作用于预测接口.
func (h *Handler) Register(r gin.IRouter, heavy ...gin.HandlerFunc) {
	r.GET("/healthz", h.Health)
	if h.metrics != nil {
		r.GET(h.metricsPath, gin.WrapH(h.metrics.Handler()))
	}
	v1 := r.Group("/v1")
	v1.POST("/forecasts", append(heavy, h.CreateForecast)...)
}

// Health 存活检查.
func (h *Handler) Health(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// CreateForecast 运行一次预测并返回摘要.
func (h *Handler) CreateForecast(c *gin.Context) {
	var body CreateForecastRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if mbe := (*http.MaxBytesError)(nil); errors.As(err, &mbe) {
			response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "request body too large", err.Error())
			return
		}
		response.Error(c, xerrors.InvalidArg("malformed forecast request").WithDetail("%v", err))
		return
	}

	series, err := SeriesFromInputs(body.Prices)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.svc.Run(c.Request.Context(), series, body.Options)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithStatus(c, http.StatusCreated, res)
}
