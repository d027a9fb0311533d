package forecast

import (
	"strings"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrationKey(t *testing.T) {
	pool, err := sim.NewResidualPool([]float64{0.01, -0.02, 0.015, -0.005, 0.0}, 1)
	require.NoError(t, err)
	other, err := sim.NewResidualPool([]float64{0.01, -0.02, 0.015, -0.005, 0.001}, 1)
	require.NoError(t, err)

	cfg := sim.DefaultConfig()
	cfg.TargetReturn = 0.08
	base := CalibrationKey(pool, cfg)
	assert.True(t, strings.HasPrefix(base, calibrationKeyPrefix))
	assert.Equal(t, base, CalibrationKey(pool, cfg))

	ignored := cfg
	ignored.Paths = 17
	ignored.Workers = 3
	ignored.StartPrice = 250
	assert.Equal(t, base, CalibrationKey(pool, ignored), "paths, workers and start price do not change the drift")

	for name, mutate := range map[string]func(*sim.Config){
		"target":  func(c *sim.Config) { c.TargetReturn = 0.09 },
		"vol":     func(c *sim.Config) { c.TargetVolatility = 0.2 },
		"seed":    func(c *sim.Config) { c.Seed = 43 },
		"pilot":   func(c *sim.Config) { c.PilotPaths = 999 },
		"block":   func(c *sim.Config) { c.BlockLength = 7 },
		"horizon": func(c *sim.Config) { c.HorizonDays = 504 },
		"cv":      func(c *sim.Config) { c.ControlVariate = false },
		"mode":    func(c *sim.Config) { c.Recenter = sim.RecenterLocal },
		"window":  func(c *sim.Config) { c.RecenterWindow = 3 },
	} {
		c := cfg
		mutate(&c)
		assert.NotEqual(t, base, CalibrationKey(pool, c), name)
	}
	assert.NotEqual(t, base, CalibrationKey(other, cfg))
}
