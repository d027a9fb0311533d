package app

import (
	"context"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/server"
)

// Option 配置 App.
type Option func(*options)

type options struct {
	servers         []server.Server
	hooks           []Hook
	lifecycle       *Lifecycle
	shutdownTimeout time.Duration
}

// WithServer 添加随应用启动的服务.
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithHook 添加生命周期钩子.
func WithHook(h Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, h)
	}
}

// WithCleanup 添加只在关闭时执行的钩子.
func WithCleanup(name string, fn func(context.Context) error) Option {
	return WithHook(Hook{Name: name, OnStop: fn})
}

// WithShutdownTimeout 设置停止钩子的总超时.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
