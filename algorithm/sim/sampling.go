package sim

import (
	"math/rand/v2"
	"slices"
)

// ReservoirSampler 蓄水池采样，随机性来自调用方提供的随机流.
type ReservoirSampler[T any] struct {
	samples []T
	count   int
	k       int
	rng     *rand.Rand
}

// NewReservoirSampler 创建容量为 k 的 ReservoirSampler.
func NewReservoirSampler[T any](k int, rng *rand.Rand) *ReservoirSampler[T] {
	return &ReservoirSampler[T]{
		k:       k,
		samples: make([]T, 0, max(k, 0)),
		rng:     rng,
	}
}

// Observe 处理一个新到达的元素.
func (s *ReservoirSampler[T]) Observe(item T) {
	s.count++
	if len(s.samples) < s.k {
		s.samples = append(s.samples, item)
		return
	}
	if j := s.rng.IntN(s.count); j < s.k {
		s.samples[j] = item
	}
}

// Samples 返回当前样本.
func (s *ReservoirSampler[T]) Samples() []T {
	return s.samples
}

// Reset 重置采样器.
func (s *ReservoirSampler[T]) Reset() {
	s.count = 0
	s.samples = s.samples[:0]
}

// SamplePaths 确定性地选出 k 条路径的下标（升序），用于展示.
func SamplePaths(paths *PricePathMatrix, k int, seed int64) []int {
	if paths == nil || k <= 0 {
		return nil
	}
	rs := NewReservoirSampler[int](k, newStream(seed, domainSample, 0))
	for j := range paths.Paths() {
		rs.Observe(j)
	}
	out := slices.Clone(rs.Samples())
	slices.Sort(out)
	return out
}
