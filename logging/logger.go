// Package logging 提供基于 slog 的结构化日志，自动注入 OpenTelemetry 追踪上下文.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/contextx"

	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *Logger
	once          sync.Once

	// level 所有由本包创建的 Handler 共享，SetLevel 可在运行时调整.
	level = new(slog.LevelVar)
)

// Config 日志配置.
type Config struct {
	Service    string
	Module     string
	Level      string
	File       string // 为空时只输出到 stdout
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
	// Stdout 配置了 File 时是否同时输出到 stdout.
	Stdout bool
	// Writer 非空时替代 stdout，主要用于测试.
	Writer io.Writer
}

// Logger 封装 *slog.Logger 并记录服务与模块名.
type Logger struct {
	*slog.Logger
	Service string
	Module  string
}

// TraceHandler 从 context 中提取 trace_id、span_id 及请求级标识写入日志.
type TraceHandler struct {
	slog.Handler
}

// Handle 实现 slog.Handler.
func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	for _, k := range contextx.AllKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			r.AddAttrs(slog.String(contextx.KeyNames[k], v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs 保持装饰器不丢失.
func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup 保持装饰器不丢失.
func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// ParseLevel 解析日志级别，未知值按 info 处理.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel 运行时调整全局日志级别.
func SetLevel(s string) {
	level.Set(ParseLevel(s))
}

// NewFromConfig 创建 Logger. 配置了 File 时使用 lumberjack 切割.
func NewFromConfig(cfg Config) *Logger {
	level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	}

	var console io.Writer = os.Stdout
	if cfg.Writer != nil {
		console = cfg.Writer
	}

	var handler slog.Handler
	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handler = slog.NewJSONHandler(fileWriter, opts)
		if cfg.Stdout {
			handler = teeHandler{file: handler, console: slog.NewJSONHandler(console, opts)}
		}
	} else {
		handler = slog.NewJSONHandler(console, opts)
	}

	logger := slog.New(&TraceHandler{Handler: handler}).With(
		slog.String("service", cfg.Service),
		slog.String("module", cfg.Module),
	)
	return &Logger{Logger: logger, Service: cfg.Service, Module: cfg.Module}
}

// NewLogger 以默认 stdout 输出创建 Logger.
func NewLogger(service, module string, lvl ...string) *Logger {
	l := "info"
	if len(lvl) > 0 {
		l = lvl[0]
	}
	return NewFromConfig(Config{Service: service, Module: module, Level: l})
}

// Init 设置全局默认 Logger，只生效一次.
func Init(cfg Config) {
	once.Do(func() {
		defaultLogger = NewFromConfig(cfg)
		slog.SetDefault(defaultLogger.Logger)
	})
}

// Default 返回默认 Logger，未初始化时按 info 级别输出到 stdout.
func Default() *Logger {
	Init(Config{Service: "default", Module: "default", Level: "info"})
	return defaultLogger
}

// Info 记录 Info 级别日志.
func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(ctx, msg, args...)
}

// Warn 记录 Warn 级别日志.
func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(ctx, msg, args...)
}

// Error 记录 Error 级别日志.
func Error(ctx context.Context, msg string, args ...any) {
	Default().ErrorContext(ctx, msg, args...)
}

// Debug 记录 Debug 级别日志.
func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(ctx, msg, args...)
}

// LogDuration 返回一个在调用时记录耗时的函数.
func LogDuration(ctx context.Context, operation string, args ...any) func() {
	start := time.Now()
	return func() {
		logArgs := append(args, "duration", time.Since(start))
		Info(ctx, fmt.Sprintf("%s finished", operation), logArgs...)
	}
}
