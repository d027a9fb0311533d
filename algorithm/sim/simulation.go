package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"gonum.org/v1/gonum/mat"
)

// Config 一次模拟的全部参数.
type Config struct {
	HorizonDays      int     // H, 交易日
	Paths            int     // N
	TargetReturn     float64 // R, 年化算术收益
	TargetVolatility float64 // σ, 年化波动率
	BlockLength      int     // L, 以周期计
	PilotPaths       int     // P
	Seed             int64
	StartPrice       float64

	Recenter       RecenterMode
	RecenterWindow int // 以周期计，0 表示取 BlockLength（与年度对齐时顺延）

	// Workers 并发协程上限，<=0 时取 GOMAXPROCS. 不影响结果.
	Workers int
	// ControlVariate 以 E[S]=0 为控制变量估计 mean(exp(S)).
	ControlVariate bool
}

// DefaultConfig 返回一年期、5000 条路径的默认配置.
func DefaultConfig() Config {
	return Config{
		HorizonDays:      finance.TradingDaysPerYear,
		Paths:            5000,
		TargetVolatility: 0.18,
		BlockLength:      6,
		PilotPaths:       1000,
		Seed:             42,
		StartPrice:       1,
		ControlVariate:   true,
	}
}

// Validate 校验参数.
func (c Config) Validate() error {
	switch {
	case c.HorizonDays < 1:
		return xerrors.InvalidSimulationConfig("horizon must be at least 1 day, got %d", c.HorizonDays)
	case c.Paths < 1:
		return xerrors.InvalidSimulationConfig("paths must be at least 1, got %d", c.Paths)
	case c.PilotPaths < 1:
		return xerrors.InvalidSimulationConfig("pilot paths must be at least 1, got %d", c.PilotPaths)
	case c.BlockLength < 1:
		return xerrors.InvalidSimulationConfig("block length must be at least 1, got %d", c.BlockLength)
	case !(c.TargetReturn > -1) || math.IsInf(c.TargetReturn, 0):
		return xerrors.InvalidSimulationConfig("target return must be finite and above -100%%, got %v", c.TargetReturn)
	case !(c.TargetVolatility >= 0) || math.IsInf(c.TargetVolatility, 0):
		return xerrors.InvalidSimulationConfig("target volatility must be finite and non-negative, got %v", c.TargetVolatility)
	case !(c.StartPrice > 0) || math.IsInf(c.StartPrice, 0):
		return xerrors.InvalidSimulationConfig("start price must be positive, got %v", c.StartPrice)
	case c.Recenter != RecenterNone && c.Recenter != RecenterLocal:
		return xerrors.InvalidSimulationConfig("unknown recenter mode %d", c.Recenter)
	case c.RecenterWindow < 0:
		return xerrors.InvalidSimulationConfig("recenter window must be non-negative, got %d", c.RecenterWindow)
	}
	return nil
}

// ValidateFor 在 Validate 的基础上检查与残差池相关的约束.
// 局部去均值窗口整除一年的周期数时，除最后一年外每年的残差和都为零，
// 显式指定这样的窗口返回 InvalidSimulationConfig.
func (c Config) ValidateFor(pool *ResidualPool) error {
	if pool == nil || pool.Len() == 0 {
		return xerrors.EmptyResidualPool()
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Recenter == RecenterLocal && c.RecenterWindow > 0 && windowDividesYear(c.RecenterWindow, pool.tradingDays) {
		return xerrors.InvalidSimulationConfig(
			"recenter window of %d periods divides the %d periods of a year and would zero every annual residual sum",
			c.RecenterWindow, finance.TradingDaysPerYear/pool.tradingDays)
	}
	return nil
}

// Warnings 返回与残差池组合后的可降级问题（目前只有去均值窗口退化）.
func (c Config) Warnings(pool *ResidualPool) []error {
	if pool == nil {
		return nil
	}
	return recenterWarnings(c.Recenter, c.RecenterWindowFor(pool.tradingDays), periodsFor(c.HorizonDays, pool.tradingDays))
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// RecenterWindowFor 返回实际使用的局部去均值窗口（以周期计）.
// 未指定时取 BlockLength，若它整除一年的周期数则取其后第一个不整除的值.
func (c Config) RecenterWindowFor(tradingDays int) int {
	if c.RecenterWindow > 0 {
		return c.RecenterWindow
	}
	w := max(c.BlockLength, 1)
	for windowDividesYear(w, tradingDays) {
		w++
	}
	return w
}

// windowDividesYear 窗口边界是否与年度边界对齐.
func windowDividesYear(window, tradingDays int) bool {
	if window < 1 || tradingDays < 1 || finance.TradingDaysPerYear%tradingDays != 0 {
		return false
	}
	return (finance.TradingDaysPerYear/tradingDays)%window == 0
}

func periodsFor(horizon, tradingDays int) int {
	return (horizon + tradingDays - 1) / tradingDays
}

// generator 把残差池组合成日对数收益：抽样、缩放、可选去均值、布朗桥.
// 试点与正式模拟共用同一组合.
type generator struct {
	pool              *ResidualPool
	blockLen          int
	mode              RecenterMode
	window            int
	volScale          float64
	targetDailyVol    float64
	periodResidualStd float64
}

func newGenerator(pool *ResidualPool, cfg Config) *generator {
	targetDaily := cfg.TargetVolatility / math.Sqrt(finance.TradingDaysPerYear)
	return &generator{
		pool:              pool,
		blockLen:          cfg.BlockLength,
		mode:              cfg.Recenter,
		window:            cfg.RecenterWindowFor(pool.tradingDays),
		volScale:          cfg.TargetVolatility / pool.annualStd,
		targetDailyVol:    targetDaily,
		periodResidualStd: targetDaily / math.Sqrt(float64(pool.tradingDays)),
	}
}

func (g *generator) logReturns(horizon int, drift float64, rng *rand.Rand) ([]float64, error) {
	nf := g.pool.tradingDays
	periods := periodsFor(horizon, nf)

	raw, err := bootstrap(g.pool.residuals, periods, g.blockLen, rng)
	if err != nil {
		return nil, err
	}
	scaled := Recenter(Scale(raw, g.volScale), g.mode, g.window)

	out := make([]float64, horizon)
	for k := range periods {
		bridge := Disaggregate(nf, g.targetDailyVol, g.periodResidualStd, rng)
		base := drift + scaled.At(k)/float64(nf)
		for d := 0; d < nf; d++ {
			idx := k*nf + d
			if idx >= horizon {
				break
			}
			out[idx] = base + bridge[d]
		}
	}
	return out, nil
}

// PricePathMatrix (H+1)×N 价格矩阵，第 0 行为起始价格，每列一条路径.
type PricePathMatrix struct {
	m *mat.Dense
}

// Horizon 模拟的交易日数 H.
func (p *PricePathMatrix) Horizon() int {
	r, _ := p.m.Dims()
	return r - 1
}

// Paths 路径数 N.
func (p *PricePathMatrix) Paths() int {
	_, c := p.m.Dims()
	return c
}

// At 第 path 条路径在第 day 天的价格.
func (p *PricePathMatrix) At(day, path int) float64 { return p.m.At(day, path) }

// Path 返回第 j 条路径的副本.
func (p *PricePathMatrix) Path(j int) []float64 { return mat.Col(nil, j, p.m) }

// Day 返回第 t 天所有路径价格的副本.
func (p *PricePathMatrix) Day(t int) []float64 { return mat.Row(nil, t, p.m) }

// Terminal 返回最后一天的价格.
func (p *PricePathMatrix) Terminal() []float64 { return p.Day(p.Horizon()) }

// Dense 返回底层矩阵.
func (p *PricePathMatrix) Dense() *mat.Dense { return p.m }

// Simulate 以给定日漂移生成 N 条价格路径.
// 第 j 条路径只使用由 (Seed, j) 派生的随机流，结果与 Workers 无关.
func Simulate(ctx context.Context, pool *ResidualPool, cfg Config, drift float64) (*PricePathMatrix, error) {
	if err := cfg.ValidateFor(pool); err != nil {
		return nil, err
	}
	if math.IsNaN(drift) || math.IsInf(drift, 0) {
		return nil, xerrors.InvalidSimulationConfig("drift must be finite, got %v", drift)
	}

	g := newGenerator(pool, cfg)
	h := cfg.HorizonDays
	m := mat.NewDense(h+1, cfg.Paths, nil)

	err := parallelFor(ctx, cfg.Paths, cfg.workers(), func(j int) error {
		r, err := g.logReturns(h, drift, newStream(cfg.Seed, domainPath, j))
		if err != nil {
			return err
		}
		col := make([]float64, h+1)
		col[0] = cfg.StartPrice
		for t, lr := range r {
			col[t+1] = col[t] * math.Exp(lr)
		}
		m.SetCol(j, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PricePathMatrix{m: m}, nil
}

// Run 先校准漂移，再以校准结果模拟.
func Run(ctx context.Context, pool *ResidualPool, cfg Config) (*PricePathMatrix, *Calibration, error) {
	cal, err := Calibrate(ctx, pool, cfg)
	if err != nil {
		return nil, nil, err
	}
	paths, err := Simulate(ctx, pool, cfg, cal.DailyDrift)
	if err != nil {
		return nil, cal, err
	}
	return paths, cal, nil
}
