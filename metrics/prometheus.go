// Package metrics 封装独立的 Prometheus 注册表以及 HTTP 与模拟流水线的标准指标.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有私有注册表及预定义指标.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPInFlight          *prometheus.GaugeVec
	HTTPSlowRequestsTotal *prometheus.CounterVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// ForecastRunsTotal 按结果 (ok, invalid, failed, canceled) 统计的预测次数.
	ForecastRunsTotal *prometheus.CounterVec
	// StageDuration 各流水线阶段 (estimate, calibrate, simulate, validate, summarize) 耗时.
	StageDuration *prometheus.HistogramVec
	// PathsSimulated 已生成的路径总数，按阶段 (pilot, forecast) 区分.
	PathsSimulated *prometheus.CounterVec
	// CalibrationCache 校准缓存查询结果 (hit, miss, error).
	CalibrationCache *prometheus.CounterVec
	// WarningsTotal 按告警码统计的数据质量告警.
	WarningsTotal *prometheus.CounterVec

	// BuildInfo 常量 1，标签携带 service、version、go_version.
	BuildInfo *prometheus.GaugeVec
	buildOnce sync.Once
}

// NewMetrics 创建注册表并注册运行时、进程与全部标准指标.
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPInFlight = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_server_requests_in_flight",
		Help: "HTTP requests currently being served",
	}, []string{"method", "path"})

	m.HTTPSlowRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_slow_requests_total",
		Help: "HTTP requests slower than the configured threshold",
	}, []string{"method", "path"})

	m.HTTPRequestSizeBytes = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_size_bytes",
		Help:    "HTTP request body size in bytes",
		Buckets: prometheus.ExponentialBuckets(128, 4, 8),
	}, []string{"method", "path"})

	m.HTTPResponseSizeBytes = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_response_size_bytes",
		Help:    "HTTP response body size in bytes",
		Buckets: prometheus.ExponentialBuckets(128, 4, 8),
	}, []string{"method", "path"})

	m.ForecastRunsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_runs_total",
		Help: "Forecast runs by outcome",
	}, []string{"outcome"})

	m.StageDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_stage_duration_seconds",
		Help:    "Duration of each forecast pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"stage"})

	m.PathsSimulated = m.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_paths_simulated_total",
		Help: "Number of simulated price paths",
	}, []string{"phase"})

	m.CalibrationCache = m.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_calibration_cache_total",
		Help: "Calibration cache lookups by result",
	}, []string{"result"})

	m.WarningsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_warnings_total",
		Help: "Data quality warnings attached to forecasts",
	}, []string{"code"})

	slog.Info("unified metrics registry initialized", "service", serviceName)
	return m
}

// NewCounterVec 创建并注册计数器.
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册仪表盘.
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册直方图.
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// ObserveStage 记录一个阶段自 start 起的耗时. m 为 nil 时无操作.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RegisterBuildInfo 暴露 forecastd_build_info，只有首次调用生效.
// version 为空或 "dev" 时取主模块版本.
func (m *Metrics) RegisterBuildInfo(service, version string) {
	if m == nil {
		return
	}
	m.buildOnce.Do(func() {
		if version == "" || version == "dev" {
			version = moduleVersion()
		}
		m.BuildInfo = m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecastd_build_info",
			Help: "Always 1; labels identify the running build",
		}, []string{"service", "version", "go_version"})
		m.BuildInfo.WithLabelValues(service, version, runtime.Version()).Set(1)
	})
}

func moduleVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

// Registry 返回底层注册表，供测试采集.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回暴露指标的 HTTP 处理器.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ExposeHTTP 在独立端口暴露指标，返回关闭函数.
func (m *Metrics) ExposeHTTP(addr string) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown metrics server", "error", err)
		}
	}
}
