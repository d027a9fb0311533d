package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	bridgeEpsilon  = 1e-8
	minBridgeScale = 0.1
	maxBridgeScale = 10.0
)

// BridgeVariance 布朗桥的日方差预算 max(target² − period², 0).
func BridgeVariance(targetDailyVol, periodResidualStd float64) float64 {
	return math.Max(targetDailyVol*targetDailyVol-periodResidualStd*periodResidualStd, 0)
}

// Disaggregate 把一个粗粒度周期拆成 n 个和为零的日增量，
// 只补足周期残差未覆盖的日内方差.
func Disaggregate(n int, targetDailyVol, periodResidualStd float64, rng *rand.Rand) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	bridgeStd := math.Sqrt(BridgeVariance(targetDailyVol, periodResidualStd))
	if bridgeStd < bridgeEpsilon {
		return out
	}

	// W: 标准正态增量的累积和; B_t = W_t − (t/n)·W_n 在两端为零.
	var w float64
	for i := range out {
		w += rng.NormFloat64()
		out[i] = w
	}
	wn := out[n-1]
	prev := 0.0
	for i := range out {
		b := out[i] - float64(i+1)/float64(n)*wn
		out[i] = b - prev
		prev = b
	}
	floats.AddConst(-stat.Mean(out, nil), out)

	// 先把单位布朗桥归一化（因子截断在 [0.1, 10]），再乘以 bridgeStd.
	_, raw := stat.PopMeanStdDev(out, nil)
	norm := 1.0
	if raw > bridgeEpsilon {
		norm = math.Min(math.Max(1/raw, minBridgeScale), maxBridgeScale)
	}
	floats.Scale(bridgeStd*norm, out)
	floats.AddConst(-stat.Mean(out, nil), out)
	return out
}
