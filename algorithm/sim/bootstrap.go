package sim

import (
	"math/rand/v2"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"
)

// Bootstrap 循环块自助抽样：均匀选取起点，复制 blockLen 个连续残差（越过末尾回绕），
// 重复直到凑满 m 个后截断. blockLen 大于残差池长度时多次回绕.
func Bootstrap(pool []float64, m, blockLen int, rng *rand.Rand) ([]float64, error) {
	return bootstrap(pool, m, blockLen, rng)
}

func bootstrap(pool []float64, m, blockLen int, rng *rand.Rand) ([]float64, error) {
	if len(pool) == 0 {
		return nil, xerrors.EmptyResidualPool()
	}
	if m < 0 {
		return nil, xerrors.InvalidSimulationConfig("sample length must be non-negative, got %d", m)
	}
	if blockLen < 1 {
		return nil, xerrors.InvalidSimulationConfig("block length must be at least 1, got %d", blockLen)
	}

	out := make([]float64, m)
	n := len(pool)
	for filled := 0; filled < m; {
		start := rng.IntN(n)
		for k := 0; k < blockLen && filled < m; k++ {
			out[filled] = pool[(start+k)%n]
			filled++
		}
	}
	return out, nil
}
