package forecast

import (
	"io"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/logging"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

var testStart = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// syntheticInputs 以 gapDays 为间隔生成 n 个价格，周期对数收益服从 N(mu, sigma).
func syntheticInputs(n, gapDays int, mu, sigma float64, seed uint64) []PriceInput {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	out := make([]PriceInput, n)
	price := 100.0
	for i := range n {
		if i > 0 {
			price *= math.Exp(dist.Rand())
		}
		out[i] = PriceInput{Date: testStart.AddDate(0, 0, i*gapDays).Format(time.DateOnly), Price: price}
	}
	return out
}

func syntheticSeries(t *testing.T, n, gapDays int, mu, sigma float64, seed uint64) *finance.PriceSeries {
	t.Helper()
	s, err := SeriesFromInputs(syntheticInputs(n, gapDays, mu, sigma, seed))
	require.NoError(t, err)
	return s
}

func testSimulationConfig() config.SimulationConfig {
	return config.SimulationConfig{
		HorizonDays:    252,
		Paths:          400,
		MaxPaths:       5000,
		MaxHorizonDays: 252 * 50,
		MaxPathCells:   50_000_000,
		PilotPaths:     300,
		Seed:           7,
		Workers:        4,
		Recenter:       "none",
		ControlVariate: true,
		SamplePaths:    3,
		MaxConcurrent:  2,
		Timeout:        time.Minute,
		Views: config.ViewsConfig{
			OutlookShift: 0.10,
			Calm:         0.12,
			Normal:       0.18,
			Turbulent:    0.28,
			LowWeight:    0.25,
			MediumWeight: 0.50,
			HighWeight:   0.75,
		},
	}
}

func quietLogger() *logging.Logger {
	return logging.NewFromConfig(logging.Config{Service: "forecastd", Module: "test", Level: "error", Writer: io.Discard})
}
