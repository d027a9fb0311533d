package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrateRecoversClassicalDrift(t *testing.T) {
	pool := mustPool(t, gaussianResiduals(5000, 0.01, 21), 1)
	want := math.Log(1.08) - 0.20*0.20/2

	for _, cv := range []bool{true, false} {
		t.Run(fmt.Sprintf("control_variate=%v", cv), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.PilotPaths = 5000
			cfg.BlockLength = 1
			cfg.TargetReturn = 0.08
			cfg.TargetVolatility = 0.20
			cfg.ControlVariate = cv

			cal, err := Calibrate(context.Background(), pool, cfg)
			require.NoError(t, err)

			assert.InDelta(t, want, cal.DailyDrift*252, 0.005)
			assert.Equal(t, 5000, cal.PilotObservations)
			assert.InDelta(t, 0.20, cal.PilotStdLogReturn, 0.01)
			if !cv {
				assert.False(t, cal.ControlVariate)
				assert.Equal(t, cal.RawLogMoment, cal.LogMoment)
			}
		})
	}
}

func TestCalibrateDriftSolvesLogMoment(t *testing.T) {
	pool := mustPool(t, studentResiduals(500, 0.01, 5, 3), 1)

	cfg := DefaultConfig()
	cfg.PilotPaths = 300
	cfg.BlockLength = 20
	cfg.TargetReturn = 0.10

	for _, cv := range []bool{true, false} {
		cfg.ControlVariate = cv
		cal, err := Calibrate(context.Background(), pool, cfg)
		require.NoError(t, err)

		assert.InDelta(t, (math.Log(1.10)-cal.LogMoment)/252, cal.DailyDrift, 1e-15)
		assert.InDelta(t, math.Exp(cal.LogMoment), cal.MeanGrowth, 1e-12)
		assert.InDelta(t, math.Expm1(252*cal.DailyDrift), cal.ImpliedDriftReturn, 1e-12)
		assert.Greater(t, cal.StdError, 0.0)
		if !cv {
			assert.Equal(t, cal.RawLogMoment, cal.LogMoment)
			assert.False(t, cal.ControlVariate)
		}
	}
}

func TestCalibrateUsesEveryCompletePilotYear(t *testing.T) {
	pool := mustPool(t, gaussianResiduals(200, 0.04, 4), 21)

	cfg := DefaultConfig()
	cfg.PilotPaths = 40
	cfg.HorizonDays = 3*252 + 100

	cal, err := Calibrate(context.Background(), pool, cfg)
	require.NoError(t, err)
	assert.Equal(t, 120, cal.PilotObservations)

	cfg.HorizonDays = 63
	cal, err = Calibrate(context.Background(), pool, cfg)
	require.NoError(t, err)
	assert.Equal(t, 40, cal.PilotObservations)
}

func TestSolveDriftRejectsUnusableMoment(t *testing.T) {
	cfg := DefaultConfig()

	_, err := solveDrift(nil, cfg)
	assert.True(t, errors.Is(err, xerrors.ErrNonConvergentCalibration))

	_, err = solveDrift([]float64{800, 900, 1000}, cfg)
	assert.True(t, errors.Is(err, xerrors.ErrNonConvergentCalibration))

	_, err = solveDrift([]float64{math.NaN(), 0.1}, cfg)
	assert.True(t, errors.Is(err, xerrors.ErrNonConvergentCalibration))
}

func TestSolveDriftSinglePilotYear(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetReturn = 0.05

	cal, err := solveDrift([]float64{0.02}, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, cal.LogMoment, 1e-15)
	assert.InDelta(t, (math.Log(1.05)-0.02)/252, cal.DailyDrift, 1e-15)
	assert.Equal(t, 0.0, cal.StdError)
}

func TestCalibrateIsIndependentOfWorkers(t *testing.T) {
	pool := mustPool(t, studentResiduals(300, 0.012, 4, 8), 1)

	cfg := DefaultConfig()
	cfg.PilotPaths = 64
	cfg.BlockLength = 10

	cfg.Workers = 1
	a, err := Calibrate(context.Background(), pool, cfg)
	require.NoError(t, err)
	cfg.Workers = 7
	b, err := Calibrate(context.Background(), pool, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCalibrateHonoursCancellation(t *testing.T) {
	pool := mustPool(t, gaussianResiduals(100, 0.01, 9), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Calibrate(ctx, pool, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
