package sim

import (
	"context"
	"math"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"gonum.org/v1/gonum/stat"
)

// Calibration 漂移校准结果与试点诊断.
type Calibration struct {
	DailyDrift        float64 `json:"daily_drift"`
	PilotPaths        int     `json:"pilot_paths"`
	PilotObservations int     `json:"pilot_observations"`

	// LogMoment 求解漂移所用的 log(mean(exp(S))).
	LogMoment float64 `json:"log_moment"`
	// RawLogMoment 不使用控制变量时的估计.
	RawLogMoment float64 `json:"raw_log_moment"`
	// MeanGrowth exp(LogMoment).
	MeanGrowth         float64 `json:"mean_growth"`
	ImpliedDriftReturn float64 `json:"implied_drift_return"`

	PilotMeanLogReturn float64 `json:"pilot_mean_log_return"`
	PilotStdLogReturn  float64 `json:"pilot_std_log_return"`
	PilotSkew          float64 `json:"pilot_skew"`

	// StdError 试点估计误差折算到年化算术收益上的标准误.
	StdError       float64 `json:"std_error"`
	ControlVariate bool    `json:"control_variate"`
}

// Calibrate 用零漂移试点路径估计 L = log E[exp(S)]，
// 解出 μ* = (log(1+R) − L)/252，使模拟路径的年化算术收益均值为 R.
// S 取每条试点路径上所有完整且不重叠的 252 日窗口的对数收益.
func Calibrate(ctx context.Context, pool *ResidualPool, cfg Config) (*Calibration, error) {
	if err := cfg.ValidateFor(pool); err != nil {
		return nil, err
	}

	const year = finance.TradingDaysPerYear
	horizon := max(cfg.HorizonDays, year)
	years := horizon / year

	g := newGenerator(pool, cfg)
	sums := make([]float64, cfg.PilotPaths*years)
	err := parallelFor(ctx, cfg.PilotPaths, cfg.workers(), func(p int) error {
		r, err := g.logReturns(horizon, 0, newStream(cfg.Seed, domainPilot, p))
		if err != nil {
			return err
		}
		for y := range years {
			var s float64
			for _, v := range r[y*year : (y+1)*year] {
				s += v
			}
			sums[p*years+y] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return solveDrift(sums, cfg)
}

func solveDrift(sums []float64, cfg Config) (*Calibration, error) {
	n := len(sums)
	if n == 0 {
		return nil, xerrors.NonConvergentCalibration("no complete pilot years")
	}
	growth := make([]float64, n)
	for i, s := range sums {
		growth[i] = math.Exp(s)
	}

	raw := stat.Mean(growth, nil)
	if !usableGrowth(raw) {
		return nil, xerrors.NonConvergentCalibration("mean(exp(S)) = %v over %d pilot years", raw, n)
	}

	cal := &Calibration{
		PilotPaths:        cfg.PilotPaths,
		PilotObservations: n,
		RawLogMoment:      math.Log(raw),
	}
	if n > 1 {
		cal.PilotMeanLogReturn, cal.PilotStdLogReturn = stat.MeanStdDev(sums, nil)
		if cal.PilotStdLogReturn > 0 {
			cal.PilotSkew = stat.Skew(sums, nil)
		}
	} else {
		cal.PilotMeanLogReturn = sums[0]
	}

	estimate := raw
	adjusted := growth
	if cfg.ControlVariate && n > 2 {
		if v := stat.Variance(sums, nil); v > 0 {
			b := stat.Covariance(growth, sums, nil) / v
			cv := raw - b*cal.PilotMeanLogReturn
			if usableGrowth(cv) {
				estimate = cv
				cal.ControlVariate = true
				adjusted = make([]float64, n)
				for i := range growth {
					adjusted[i] = growth[i] - b*sums[i]
				}
			}
		}
	}

	cal.MeanGrowth = estimate
	cal.LogMoment = math.Log(estimate)
	cal.DailyDrift = (math.Log1p(cfg.TargetReturn) - cal.LogMoment) / finance.TradingDaysPerYear
	cal.ImpliedDriftReturn = math.Expm1(cal.DailyDrift * finance.TradingDaysPerYear)
	if n > 1 {
		se := stat.StdDev(adjusted, nil) / math.Sqrt(float64(n))
		cal.StdError = (1 + cfg.TargetReturn) * se / estimate
	}
	return cal, nil
}

func usableGrowth(m float64) bool {
	return m > 0 && !math.IsInf(m, 0) && !math.IsNaN(m)
}
