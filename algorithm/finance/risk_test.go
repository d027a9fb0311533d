package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDrawdown(t *testing.T) {
	rc := NewRiskCalculator()
	assert.Equal(t, 0.0, rc.MaxDrawdown(nil))
	assert.Equal(t, 0.0, rc.MaxDrawdown([]float64{1, 2, 3}))
	assert.InDelta(t, 0.5, rc.MaxDrawdown([]float64{100, 120, 60, 110, 90}), 1e-12)
}

func TestValueAtRisk(t *testing.T) {
	rc := NewRiskCalculator()
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = float64(i-50) / 100 // -0.50 ... 0.49
	}

	v, err := rc.ValueAtRisk(returns, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, 0.455, v, 0.006)

	es, err := rc.ExpectedShortfall(returns, 0.95)
	require.NoError(t, err)
	assert.Greater(t, es, v)

	_, err = rc.ValueAtRisk(returns, 1.5)
	assert.Error(t, err)
	_, err = rc.ValueAtRisk(nil, 0.95)
	assert.Error(t, err)
}

func TestProbabilityOfLossAndSharpe(t *testing.T) {
	rc := NewRiskCalculator()
	assert.InDelta(t, 0.5, rc.ProbabilityOfLoss([]float64{-0.1, 0.2, -0.05, 0.3}), 1e-12)
	assert.Equal(t, 0.0, rc.SharpeRatio([]float64{0.1, 0.1, 0.1}, 0.02))
	assert.InDelta(t, 1.0, rc.SharpeRatio([]float64{0.2, 0.0}, 0.0), 1e-12)
}
