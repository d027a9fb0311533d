package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearPaths 每条路径第 y 年的年收益为 growth[j][y].
func linearPaths(growth [][]float64) *PricePathMatrix {
	years := len(growth[0])
	h := years * 252
	m := mat.NewDense(h+1, len(growth), nil)
	for j, g := range growth {
		p := 1.0
		m.Set(0, j, p)
		for y := range years {
			daily := math.Pow(1+g[y], 1.0/252)
			for d := 1; d <= 252; d++ {
				p *= daily
				m.Set(y*252+d, j, p)
			}
		}
	}
	return &PricePathMatrix{m: m}
}

func TestValidateYearByYear(t *testing.T) {
	paths := linearPaths([][]float64{
		{0.10, -0.05},
		{0.20, 0.05},
	})
	rep, err := Validate(paths, 0.06)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.YearsPerPath)
	assert.Equal(t, 4, rep.Observations)
	assert.InDelta(t, 0.075, rep.MeanReturn, 1e-9)
	assert.InDelta(t, 0.015, rep.Gap, 1e-9)
	require.Len(t, rep.ByYear, 2)
	assert.InDelta(t, 0.15, rep.ByYear[0].Mean, 1e-9)
	assert.InDelta(t, 0.05, rep.ByYear[0].Std, 1e-9)
	assert.InDelta(t, 0.0, rep.ByYear[1].Mean, 1e-9)
	assert.Equal(t, 2, rep.ByYear[1].Year)

	assert.ElementsMatch(t, []float64{0.10, -0.05, 0.20, 0.05}, roundAll(AnnualReturns(paths)))
}

func roundAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*1e9) / 1e9
	}
	return out
}

func TestValidateIgnoresPartialYear(t *testing.T) {
	m := mat.NewDense(300, 2, nil)
	for i := range 300 {
		m.Set(i, 0, 1+float64(i)/1000)
		m.Set(i, 1, 1)
	}
	rep, err := Validate(&PricePathMatrix{m: m}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.YearsPerPath)
	assert.InDelta(t, 0.126, rep.ByYear[0].Mean, 1e-9)
}

func TestValidateRejectsShortHorizon(t *testing.T) {
	m := mat.NewDense(100, 3, nil)
	_, err := Validate(&PricePathMatrix{m: m}, 0.1)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))

	_, err = Validate(nil, 0.1)
	assert.Error(t, err)
}

func TestWithinStandardErrors(t *testing.T) {
	rep := &ValidationReport{Gap: 0.01, StdError: 0.004}
	assert.False(t, rep.WithinStandardErrors(2, 0))
	assert.True(t, rep.WithinStandardErrors(2, 0.003))
	assert.True(t, rep.WithinStandardErrors(3, 0))
}
