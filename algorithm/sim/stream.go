// Package sim 实现校准后的随机价格路径模拟：残差块自助抽样、布朗桥分解、漂移校准与验证.
package sim

import (
	"context"
	"math/rand/v2"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/cast"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"golang.org/x/sync/errgroup"
)

// streamDomain 区分不同用途的随机流，保证试点路径与正式路径互不相关.
type streamDomain uint64

const (
	domainPilot  streamDomain = 0x70696c6f74   // "pilot"
	domainPath   streamDomain = 0x70617468     // "path"
	domainSample streamDomain = 0x73616d706c65 // "sample"

	golden = 0x9e3779b97f4a7c15
)

func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// newStream 由 (seed, domain, index) 派生独立的 PCG 随机流.
// 同一三元组总是得到同一序列，与调度顺序无关.
func newStream(seed int64, domain streamDomain, index int) *rand.Rand {
	hi := splitmix64(cast.Int64ToUint64(seed) ^ splitmix64(uint64(domain)))
	lo := splitmix64(hi ^ splitmix64(cast.IntToUint64(index)))
	return rand.New(rand.NewPCG(hi, lo))
}

// parallelFor 以最多 workers 个协程执行 fn(0..n-1).
// fn 只能写入属于下标 i 的输出，因此结果与 workers 无关.
func parallelFor(ctx context.Context, n, workers int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return contextError(err)
	}
	return contextError(ctx.Err())
}

func contextError(err error) error {
	switch {
	case err == nil:
		return nil
	case xerrors.IsContextError(err):
		return xerrors.Wrap(err, xerrors.ErrDeadlineExceeded, "simulation interrupted")
	default:
		return err
	}
}
