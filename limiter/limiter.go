// Package limiter 提供基于令牌桶的请求限流与基于信号量的并发控制.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter 限流器.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 进程级全局令牌桶，忽略 key.
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter r 为每秒令牌数，b 为桶容量.
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 实现 Limiter.
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}

// KeyedLimiter 为每个 key (通常是客户端 IP) 维护独立令牌桶.
// 超过 idle 未访问的桶在下次清理时回收.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*keyedBucket
	r       rate.Limit
	b       int
	idle    time.Duration
	lastGC  time.Time
	now     func() time.Time
}

type keyedBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewKeyedLimiter 创建按 key 限流的令牌桶集合.
func NewKeyedLimiter(r rate.Limit, b int, idle time.Duration) *KeyedLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &KeyedLimiter{
		buckets: make(map[string]*keyedBucket),
		r:       r,
		b:       b,
		idle:    idle,
		now:     time.Now,
	}
}

// Allow 实现 Limiter.
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastGC) > l.idle {
		for k, bkt := range l.buckets {
			if now.Sub(bkt.seen) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}

	bkt, ok := l.buckets[key]
	if !ok {
		bkt = &keyedBucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = bkt
	}
	bkt.seen = now
	return bkt.limiter.AllowN(now, 1), nil
}

// Len 当前跟踪的 key 数量.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
