// Package app 管理进程级生命周期：启动服务、等待退出信号、按注册的逆序释放资源.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 10 * time.Second

// App 应用容器.
type App struct {
	name    string
	version string
	logger  *slog.Logger
	opts    options
}

// New 创建应用. logger 为 nil 时使用 slog.Default().
func New(name, version string, logger *slog.Logger, opts ...Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	o.lifecycle = NewLifecycle(logger)
	for _, h := range o.hooks {
		o.lifecycle.Append(h)
	}
	return &App{name: name, version: version, logger: logger, opts: o}
}

// Run 启动所有钩子与服务并阻塞，直到 ctx 取消、收到 SIGINT/SIGTERM 或任一服务退出.
// 之后在 shutdownTimeout 内按逆序执行停止钩子.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting", "name", a.name, "version", a.version, "pid", os.Getpid())

	if err := a.opts.lifecycle.Start(ctx); err != nil {
		return errors.Join(err, a.shutdown())
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range a.opts.servers {
		g.Go(func() error {
			if err := srv.Start(gctx); err != nil {
				a.logger.Error("server exited with error", "error", err)
				return err
			}
			return nil
		})
	}
	// 服务在 gctx 结束时自行优雅关闭.
	runErr := g.Wait()
	a.logger.Info("shutting down application", "name", a.name)

	if err := errors.Join(runErr, a.shutdown()); err != nil {
		return err
	}
	a.logger.Info("application shut down gracefully")
	return nil
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer cancel()
	return a.opts.lifecycle.Stop(ctx)
}
