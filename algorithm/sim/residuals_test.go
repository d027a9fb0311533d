package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNewResidualPoolDemeansAndCopies(t *testing.T) {
	in := []float64{0.03, 0.01, 0.02, 0.04}
	p := mustPool(t, in, 21)

	assert.InDelta(t, 0, p.Mean(), 1e-15)
	assert.Equal(t, 0.03, in[0])

	out := p.Residuals()
	out[0] = 9
	assert.NotEqual(t, 9.0, p.Residuals()[0])

	assert.InDelta(t, p.PeriodStd()*math.Sqrt(12), p.AnnualStd(), 1e-15)
}

func TestNewResidualPoolErrors(t *testing.T) {
	_, err := NewResidualPool(nil, 1)
	assert.True(t, errors.Is(err, xerrors.ErrEmptyResidualPool))

	_, err = NewResidualPool([]float64{0.1}, 0)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))

	_, err = NewResidualPool([]float64{0.1, math.NaN()}, 1)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))
}

func TestNewResidualPoolFloorsFlatVolatility(t *testing.T) {
	p := mustPool(t, []float64{0.01, 0.01, 0.01}, 1)
	assert.Equal(t, finance.VolatilityFloor, p.AnnualStd())
}

func TestFingerprintTracksContentAndFrequency(t *testing.T) {
	r := gaussianResiduals(100, 0.01, 1)
	a := mustPool(t, r, 1)
	b := mustPool(t, r, 1)
	c := mustPool(t, r, 21)
	r[0] += 0.001
	d := mustPool(t, r, 1)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestScaleDoesNotMutateInput(t *testing.T) {
	in := []float64{1, -2, 3}
	s := Scale(in, 0.5)
	assert.Equal(t, []float64{0.5, -1, 1.5}, s.Values())
	assert.Equal(t, []float64{1, -2, 3}, in)
}

func TestRecenterModes(t *testing.T) {
	s := Scale([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 1)

	assert.Equal(t, s.Values(), Recenter(s, RecenterNone, 3).Values())
	assert.Equal(t, s.Values(), Recenter(s, RecenterLocal, 8).Values())

	got := Recenter(s, RecenterLocal, 3).Values()
	assert.InDelta(t, 0, floats.Sum(got[0:3]), 1e-12)
	assert.InDelta(t, 0, floats.Sum(got[3:6]), 1e-12)
	// 包含最后一个周期的窗口不去均值.
	assert.Equal(t, []float64{7, 8}, got[6:8])
	assert.NotZero(t, floats.Sum(got))

	// 窗口恰好整除总周期数时，最后一个窗口同样保留.
	tiled := Recenter(s, RecenterLocal, 4).Values()
	assert.InDelta(t, 0, floats.Sum(tiled[0:4]), 1e-12)
	assert.Equal(t, []float64{5, 6, 7, 8}, tiled[4:8])
}

func TestParseRecenterMode(t *testing.T) {
	m, err := ParseRecenterMode("LOCAL")
	require.NoError(t, err)
	assert.Equal(t, RecenterLocal, m)

	m, err = ParseRecenterMode("")
	require.NoError(t, err)
	assert.Equal(t, RecenterNone, m)

	_, err = ParseRecenterMode("global")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidSimulationConfig))
}

func TestRecenterWarnings(t *testing.T) {
	assert.Empty(t, recenterWarnings(RecenterNone, 21, 12))
	assert.Empty(t, recenterWarnings(RecenterLocal, 20, 252))

	whole := recenterWarnings(RecenterLocal, 12, 12)
	require.Len(t, whole, 1)
	assert.True(t, errors.Is(whole[0], xerrors.ErrDegenerateRecenterWindow))
	assert.True(t, xerrors.IsSoft(whole[0]))
}
