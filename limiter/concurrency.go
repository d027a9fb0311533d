package limiter

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"golang.org/x/sync/semaphore"
)

// ErrConcurrencyLimit 所有模拟名额都已占用.
var ErrConcurrencyLimit = xerrors.New(xerrors.ErrUnavailable, http.StatusServiceUnavailable, "simulation slots exhausted", "", nil)

// ConcurrencyLimiter 限制同时进行的模拟数.
type ConcurrencyLimiter interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
	Release()
}

// SemaphoreLimiter 基于 semaphore.Weighted 的名额池. 零值或 nil 不限制.
type SemaphoreLimiter struct {
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

// NewSemaphoreLimiter slots <= 0 表示不限制.
func NewSemaphoreLimiter(slots int) *SemaphoreLimiter {
	l := &SemaphoreLimiter{}
	if slots > 0 {
		l.sem = semaphore.NewWeighted(int64(slots))
	}
	return l
}

// Acquire 阻塞直到拿到名额或 ctx 结束.
func (l *SemaphoreLimiter) Acquire(ctx context.Context) error {
	if l == nil || l.sem == nil {
		return nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inUse.Add(1)
	return nil
}

func (l *SemaphoreLimiter) TryAcquire() bool {
	if l == nil || l.sem == nil {
		return true
	}
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.inUse.Add(1)
	return true
}

// Release 归还一个名额. 多余的释放只记录告警.
func (l *SemaphoreLimiter) Release() {
	if l == nil || l.sem == nil {
		return
	}
	for {
		n := l.inUse.Load()
		if n == 0 {
			slog.Warn("simulation slot released without acquire")
			return
		}
		if l.inUse.CompareAndSwap(n, n-1) {
			l.sem.Release(1)
			return
		}
	}
}

// InUse 已占用的名额数.
func (l *SemaphoreLimiter) InUse() int {
	if l == nil {
		return 0
	}
	return int(l.inUse.Load())
}
