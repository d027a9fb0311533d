// Package contextx 在 context.Context 中注入与提取请求级标识，使用私有 Key 类型避免冲突.
package contextx

import (
	"context"
)

type contextKey int

const (
	RequestIDKey contextKey = iota // 请求唯一标识 Key.
	RunIDKey                       // 预测运行 ID Key.
	IPKey                          // 客户端 IP Key.
)

// KeyNames 映射 Key 到日志字段名.
var KeyNames = map[contextKey]string{
	RequestIDKey: "request_id",
	RunIDKey:     "run_id",
	IPKey:        "client_ip",
}

// AllKeys 按日志输出顺序返回全部 Key.
var AllKeys = []contextKey{RequestIDKey, RunIDKey, IPKey}

// WithRequestID 注入请求 ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 提取请求 ID.
func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// WithRunID 注入预测运行 ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID 提取预测运行 ID.
func GetRunID(ctx context.Context) string {
	return getString(ctx, RunIDKey)
}

// WithIP 注入客户端 IP.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

// GetIP 提取客户端 IP.
func GetIP(ctx context.Context) string {
	return getString(ctx, IPKey)
}

// Fields 返回 ctx 中全部非空标识，键为日志字段名.
func Fields(ctx context.Context) map[string]string {
	out := make(map[string]string, len(AllKeys))
	for _, k := range AllKeys {
		if v := getString(ctx, k); v != "" {
			out[KeyNames[k]] = v
		}
	}
	return out
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(key).(string); ok {
		return val
	}
	return ""
}
