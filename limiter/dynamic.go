package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// DynamicLimiter 可在配置热更新时替换底层实现的限流器. 未设置时放行.
type DynamicLimiter struct {
	value atomic.Pointer[Limiter]
}

// NewDynamicLimiter 创建动态限流器，initial 可为 nil.
func NewDynamicLimiter(initial Limiter) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.Update(initial)
	return d
}

// NewDynamicKeyedLimiter 创建按 key 令牌桶的动态限流器.
func NewDynamicKeyedLimiter(rateLimit, burst int) *DynamicLimiter {
	d := &DynamicLimiter{}
	d.UpdateKeyed(rateLimit, burst)
	return d
}

// Update 替换当前限流器，nil 表示关闭限流.
func (d *DynamicLimiter) Update(l Limiter) {
	if d == nil {
		return
	}
	if l == nil {
		d.value.Store(nil)
		return
	}
	d.value.Store(&l)
}

// UpdateKeyed 切换为新的按 key 令牌桶. rateLimit <= 0 关闭限流.
func (d *DynamicLimiter) UpdateKeyed(rateLimit, burst int) {
	if rateLimit <= 0 {
		d.Update(nil)
		return
	}
	if burst <= 0 {
		burst = rateLimit
	}
	d.Update(NewKeyedLimiter(rate.Limit(rateLimit), burst, 0))
}

// Allow 实现 Limiter.
func (d *DynamicLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if d == nil {
		return true, nil
	}
	p := d.value.Load()
	if p == nil {
		return true, nil
	}
	return (*p).Allow(ctx, key)
}
