// Package cache 提供进程内缓存抽象，用于复用开销较大的校准结果.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"golang.org/x/sync/singleflight"
)

// ErrCacheMiss 键不存在或已过期.
var ErrCacheMiss = xerrors.New(xerrors.ErrNotFound, 404001, "cache miss", "", nil)

// Cache 缓存接口. value 由实现负责编解码.
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// New 按配置构建缓存，未启用时返回 Noop.
func New(cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewBigCache(cfg)
}

// Loader 合并同一键上的并发加载，保证同一时刻只计算一次.
type Loader struct {
	cache Cache
	group singleflight.Group
}

// NewLoader 包装一个缓存.
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c}
}

// GetOrLoad 命中时解码到 value 并返回 true；未命中时调用 fn，写回缓存后返回 false.
// 同键的并发调用共享一次加载. 加载不随任一调用方取消，只继承其截止时间；
// 调用方取消时立即返回自身的 ctx 错误. 写回失败只记录告警，不影响本次结果.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, value *T, fn func(context.Context) (T, error)) (hit bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err = l.cache.Get(ctx, key, value)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return false, err
	}

	ch := l.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := detach(ctx)
		defer cancel()
		loaded, loadErr := fn(loadCtx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := l.cache.Set(loadCtx, key, loaded, 0); setErr != nil {
			slog.WarnContext(loadCtx, "cache write-back failed", "key", key, "error", setErr)
		}
		return loaded, nil
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		if r.Val != nil {
			*value = r.Val.(T)
		}
		return false, r.Err
	}
}

// detach 保留 ctx 的值与截止时间，去掉取消信号.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(base, deadline)
	}
	return context.WithCancel(base)
}

// Noop 不保存任何数据的缓存.
type Noop struct{}

func (Noop) Get(context.Context, string, any) error                { return ErrCacheMiss }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error               { return nil }
func (Noop) Exists(context.Context, string) (bool, error)          { return false, nil }
func (Noop) Close() error                                          { return nil }
