package sim

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func gaussianResiduals(n int, sigma float64, seed uint64) []float64 {
	d := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, 7)}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func studentResiduals(n int, sigma, nu float64, seed uint64) []float64 {
	d := distuv.StudentsT{Mu: 0, Sigma: sigma, Nu: nu, Src: rand.NewPCG(seed, 11)}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func mustPool(t *testing.T, residuals []float64, tradingDays int) *ResidualPool {
	t.Helper()
	p, err := NewResidualPool(residuals, tradingDays)
	require.NoError(t, err)
	return p
}

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 99))
}
