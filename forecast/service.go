// Package forecast 把历史估计、观点混合、漂移校准、路径模拟与验证串成一次预测运行，
// 并负责日志、指标、链路追踪与校准缓存.
package forecast

import (
	"context"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/sim"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/cache"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/contextx"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/idgen"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/limiter"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/logging"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/metrics"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/tracing"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/stat"
)

// Request 单次预测的参数，零值字段使用服务配置中的默认值.
type Request struct {
	HorizonDays    int       `json:"horizon_days,omitempty"`
	Paths          int       `json:"paths,omitempty"`
	PilotPaths     int       `json:"pilot_paths,omitempty"`
	BlockLength    int       `json:"block_length,omitempty"`
	Seed           *int64    `json:"seed,omitempty"`
	Recenter       string    `json:"recenter,omitempty"`
	RecenterWindow int       `json:"recenter_window,omitempty"`
	ControlVariate *bool     `json:"control_variate,omitempty"`
	Quantiles      []float64 `json:"quantiles,omitempty"`
	SamplePaths    *int      `json:"sample_paths,omitempty"`
	Views          Views     `json:"views"`
}

// HistoricalSummary 历史统计量摘要.
type HistoricalSummary struct {
	Frequency             string    `json:"frequency"`
	TradingDaysPerPeriod  int       `json:"trading_days_per_period"`
	Observations          int       `json:"observations"`
	AnnualMean            float64   `json:"annual_mean"`
	AnnualStd             float64   `json:"annual_std"`
	GeometricAnnualReturn float64   `json:"geometric_annual_return"`
	FirstDate             time.Time `json:"first_date"`
	LastDate              time.Time `json:"last_date"`
	LastPrice             float64   `json:"last_price"`
}

// SimulationSummary 实际使用的模拟参数.
type SimulationSummary struct {
	HorizonDays    int    `json:"horizon_days"`
	Paths          int    `json:"paths"`
	PilotPaths     int    `json:"pilot_paths"`
	BlockLength    int    `json:"block_length"`
	Seed           int64  `json:"seed"`
	Recenter       string `json:"recenter"`
	RecenterWindow int    `json:"recenter_window,omitempty"`
	ControlVariate bool   `json:"control_variate"`
}

// RiskSummary 模拟路径上的风险度量. 收益口径为年度收益，期限不足一年时为全期收益.
type RiskSummary struct {
	ReturnBasis         string  `json:"return_basis"`
	MaxDrawdownMedian   float64 `json:"max_drawdown_median"`
	MaxDrawdownP95      float64 `json:"max_drawdown_p95"`
	ValueAtRisk95       float64 `json:"value_at_risk_95"`
	ExpectedShortfall95 float64 `json:"expected_shortfall_95"`
	ProbabilityOfLoss   float64 `json:"probability_of_loss"`
}

// SamplePath 展示用的单条路径.
type SamplePath struct {
	Index  int       `json:"index"`
	Prices []float64 `json:"prices"`
}

// Warning 可降级问题.
type Warning struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Result 一次预测的完整输出. 完整价格矩阵不参与序列化，通过 Paths 获取.
type Result struct {
	RunID       string                `json:"run_id"`
	Historical  HistoricalSummary     `json:"historical"`
	Targets     Targets               `json:"targets"`
	Simulation  SimulationSummary     `json:"simulation"`
	Calibration *sim.Calibration      `json:"calibration"`
	CacheHit    bool                  `json:"calibration_cache_hit"`
	Validation  *sim.ValidationReport `json:"validation,omitempty"`
	Bands       []sim.Band            `json:"bands"`
	Terminal    *sim.TerminalStats    `json:"terminal"`
	Risk        RiskSummary           `json:"risk"`
	Samples     []SamplePath          `json:"sample_paths,omitempty"`
	Warnings    []Warning             `json:"warnings,omitempty"`
	Elapsed     time.Duration         `json:"elapsed_ns"`
	paths       *sim.PricePathMatrix
}

// Paths 返回完整价格路径矩阵.
func (r *Result) Paths() *sim.PricePathMatrix {
	return r.paths
}

// Service 预测服务. 并发安全.
type Service struct {
	cfg     atomic.Pointer[config.SimulationConfig]
	loader  *cache.Loader
	metrics *metrics.Metrics
	logger  *logging.Logger
	sem     *limiter.SemaphoreLimiter
	ids     idgen.Generator
}

// Option 可选依赖.
type Option func(*Service)

// WithCache 使用给定缓存保存校准结果.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.loader = cache.NewLoader(c) }
}

// WithMetrics 记录运行指标.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger 替换默认日志.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDGenerator 替换运行 ID 生成器.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// NewService 创建预测服务.
func NewService(cfg config.SimulationConfig, opts ...Option) *Service {
	s := &Service{
		loader: cache.NewLoader(cache.Noop{}),
		sem:    limiter.NewSemaphoreLimiter(cfg.MaxConcurrent),
	}
	s.cfg.Store(&cfg)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// UpdateConfig 热更新默认参数，进行中的运行不受影响. 并发上限不随之变化.
func (s *Service) UpdateConfig(cfg config.SimulationConfig) {
	s.cfg.Store(&cfg)
	s.logger.Info("simulation defaults updated", "paths", cfg.Paths, "pilot_paths", cfg.PilotPaths, "recenter", cfg.Recenter)
}

// Config 当前默认参数.
func (s *Service) Config() config.SimulationConfig {
	return *s.cfg.Load()
}

func (s *Service) runID() string {
	if s.ids != nil {
		return "F" + itoa(s.ids.Generate())
	}
	return idgen.GenRunID()
}

// Run 对价格序列执行一次完整预测.
func (s *Service) Run(ctx context.Context, series *finance.PriceSeries, req Request) (res *Result, err error) {
	defaults := s.Config()
	runID := s.runID()
	ctx = contextx.WithRunID(ctx, runID)
	ctx, span := tracing.StartSpan(ctx, "forecast.Run")
	defer span.End()

	start := time.Now()
	defer func() {
		s.recordOutcome(err)
		if err != nil {
			tracing.SetError(ctx, err)
			s.logger.ErrorContext(ctx, "forecast failed", "error", err, "elapsed", time.Since(start))
		}
	}()

	if err := s.sem.Acquire(ctx); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrDeadlineExceeded, "waiting for a simulation slot")
	}
	defer s.sem.Release()

	if defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaults.Timeout)
		defer cancel()
	}

	stageStart := time.Now()
	hs, err := finance.Estimate(series)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStage("estimate", stageStart)

	targets, err := req.Views.Resolve(hs, defaults.Views)
	if err != nil {
		return nil, err
	}

	cfg, err := buildConfig(req, defaults, hs, targets)
	if err != nil {
		return nil, err
	}
	pool, err := sim.PoolFromStats(hs)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateFor(pool); err != nil {
		return nil, err
	}

	res = &Result{
		RunID:      runID,
		Historical: summarizeHistory(hs),
		Targets:    targets,
		Simulation: summarizeConfig(cfg, hs.TradingDaysPerPeriod),
	}
	warnings := slices.Concat(hs.Warnings, cfg.Warnings(pool))
	res.Warnings = s.collectWarnings(ctx, warnings)

	tracing.AddTag(ctx, "forecast.run_id", runID)
	tracing.AddTag(ctx, "forecast.paths", cfg.Paths)
	tracing.AddTag(ctx, "forecast.horizon_days", cfg.HorizonDays)
	tracing.AddTag(ctx, "forecast.target_return", cfg.TargetReturn)
	s.logger.InfoContext(ctx, "forecast started",
		"frequency", hs.Frequency.String(),
		"observations", hs.Observations,
		"target_return", cfg.TargetReturn,
		"target_volatility", cfg.TargetVolatility,
		"paths", cfg.Paths,
		"pilot_paths", cfg.PilotPaths,
		"block_length", cfg.BlockLength,
		"recenter", cfg.Recenter.String(),
	)

	if res.Calibration, res.CacheHit, err = s.calibrate(ctx, pool, cfg); err != nil {
		return nil, err
	}

	stageStart = time.Now()
	simCtx, simSpan := tracing.StartSpan(ctx, "forecast.Simulate")
	paths, err := sim.Simulate(simCtx, pool, cfg, res.Calibration.DailyDrift)
	simSpan.End()
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStage("simulate", stageStart)
	if s.metrics != nil {
		s.metrics.PathsSimulated.WithLabelValues("forecast").Add(float64(cfg.Paths))
	}
	res.paths = paths

	stageStart = time.Now()
	if cfg.HorizonDays >= finance.TradingDaysPerYear {
		if res.Validation, err = sim.Validate(paths, cfg.TargetReturn); err != nil {
			return nil, err
		}
		if !res.Validation.WithinStandardErrors(2, res.Calibration.StdError) {
			s.logger.WarnContext(ctx, "realized annual return outside two standard errors of target",
				"target", cfg.TargetReturn,
				"realized", res.Validation.MeanReturn,
				"gap", res.Validation.Gap,
				"std_error", res.Validation.StdError,
			)
		}
	}
	s.metrics.ObserveStage("validate", stageStart)

	stageStart = time.Now()
	if err := s.summarize(ctx, res, req, defaults, cfg); err != nil {
		return nil, err
	}
	s.metrics.ObserveStage("summarize", stageStart)

	res.Elapsed = time.Since(start)
	logArgs := []any{
		"daily_drift", res.Calibration.DailyDrift,
		"cache_hit", res.CacheHit,
		"terminal_median", res.Terminal.Median.String(),
		"warnings", len(res.Warnings),
		"elapsed", res.Elapsed,
	}
	if res.Validation != nil {
		logArgs = append(logArgs, "realized_mean", res.Validation.MeanReturn, "gap", res.Validation.Gap)
	}
	s.logger.InfoContext(ctx, "forecast finished", logArgs...)
	return res, nil
}

func (s *Service) calibrate(ctx context.Context, pool *sim.ResidualPool, cfg sim.Config) (*sim.Calibration, bool, error) {
	stageStart := time.Now()
	ctx, span := tracing.StartSpan(ctx, "forecast.Calibrate")
	defer span.End()

	var cal sim.Calibration
	hit, err := cache.GetOrLoad(ctx, s.loader, CalibrationKey(pool, cfg), &cal,
		func(ctx context.Context) (sim.Calibration, error) {
			c, err := sim.Calibrate(ctx, pool, cfg)
			if err != nil {
				return sim.Calibration{}, err
			}
			if s.metrics != nil {
				s.metrics.PathsSimulated.WithLabelValues("pilot").Add(float64(cfg.PilotPaths))
			}
			return *c, nil
		})
	if s.metrics != nil {
		result := "miss"
		switch {
		case err != nil:
			result = "error"
		case hit:
			result = "hit"
		}
		s.metrics.CalibrationCache.WithLabelValues(result).Inc()
	}
	if err != nil {
		tracing.SetError(ctx, err)
		return nil, false, err
	}
	s.metrics.ObserveStage("calibrate", stageStart)

	tracing.AddTag(ctx, "calibration.daily_drift", cal.DailyDrift)
	tracing.AddTag(ctx, "calibration.cache_hit", hit)
	s.logger.DebugContext(ctx, "drift calibrated",
		"daily_drift", cal.DailyDrift,
		"log_moment", cal.LogMoment,
		"raw_log_moment", cal.RawLogMoment,
		"pilot_observations", cal.PilotObservations,
		"std_error", cal.StdError,
		"cache_hit", hit,
	)
	return &cal, hit, nil
}

func (s *Service) summarize(ctx context.Context, res *Result, req Request, defaults config.SimulationConfig, cfg sim.Config) error {
	var err error
	if res.Bands, err = sim.Bands(res.paths, req.Quantiles); err != nil {
		return err
	}
	if res.Terminal, err = sim.Terminal(res.paths); err != nil {
		return err
	}
	if res.Risk, err = riskSummary(res.paths); err != nil {
		return err
	}

	k := defaults.SamplePaths
	if req.SamplePaths != nil {
		k = *req.SamplePaths
	}
	for _, j := range sim.SamplePaths(res.paths, k, cfg.Seed) {
		res.Samples = append(res.Samples, SamplePath{Index: j, Prices: res.paths.Path(j)})
	}
	return ctx.Err()
}

func riskSummary(paths *sim.PricePathMatrix) (RiskSummary, error) {
	rc := finance.NewRiskCalculator()

	idx := make([]int, paths.Paths())
	for j := range idx {
		idx[j] = j
	}
	drawdowns := iter.Map(idx, func(j *int) float64 {
		return rc.MaxDrawdown(paths.Path(*j))
	})
	slices.Sort(drawdowns)

	rs := RiskSummary{
		MaxDrawdownMedian: stat.Quantile(0.5, stat.Empirical, drawdowns, nil),
		MaxDrawdownP95:    stat.Quantile(0.95, stat.Empirical, drawdowns, nil),
	}

	var returns []float64
	if paths.Horizon() >= finance.TradingDaysPerYear {
		rs.ReturnBasis = "annual"
		returns = sim.AnnualReturns(paths)
	} else {
		rs.ReturnBasis = "horizon"
		start := paths.At(0, 0)
		returns = paths.Terminal()
		for i, p := range returns {
			returns[i] = p/start - 1
		}
	}

	var err error
	if rs.ValueAtRisk95, err = rc.ValueAtRisk(returns, 0.95); err != nil {
		return RiskSummary{}, err
	}
	if rs.ExpectedShortfall95, err = rc.ExpectedShortfall(returns, 0.95); err != nil {
		return RiskSummary{}, err
	}
	rs.ProbabilityOfLoss = rc.ProbabilityOfLoss(returns)
	return rs, nil
}

func (s *Service) collectWarnings(ctx context.Context, errs []error) []Warning {
	out := make([]Warning, 0, len(errs))
	for _, e := range errs {
		w := Warning{Message: e.Error()}
		if xe, ok := xerrors.FromError(e); ok {
			w = Warning{Code: xe.Code, Message: xe.Message, Detail: xe.Detail}
		}
		out = append(out, w)
		if s.metrics != nil {
			s.metrics.WarningsTotal.WithLabelValues(itoa(int64(w.Code))).Inc()
		}
		s.logger.WarnContext(ctx, "forecast data quality warning", "code", w.Code, "message", w.Message, "detail", w.Detail)
	}
	return out
}

func (s *Service) recordOutcome(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		if xerrors.IsContextError(err) {
			outcome = "canceled"
		} else if xe, ok := xerrors.FromError(err); ok && xe.Type == xerrors.ErrInvalidArg {
			outcome = "invalid"
		}
	}
	s.metrics.ForecastRunsTotal.WithLabelValues(outcome).Inc()
}

// buildConfig 合并请求、服务默认值与历史统计量.
func buildConfig(req Request, d config.SimulationConfig, hs *finance.HistoricalStats, t Targets) (sim.Config, error) {
	cfg := sim.Config{
		HorizonDays:      firstPositive(req.HorizonDays, d.HorizonDays),
		Paths:            firstPositive(req.Paths, d.Paths),
		PilotPaths:       firstPositive(req.PilotPaths, d.PilotPaths),
		BlockLength:      req.BlockLength,
		Seed:             d.Seed,
		StartPrice:       hs.LastPrice,
		TargetReturn:     t.TargetReturn,
		TargetVolatility: t.TargetVolatility,
		RecenterWindow:   firstPositive(req.RecenterWindow, d.RecenterWindow),
		Workers:          d.Workers,
		ControlVariate:   d.ControlVariate,
	}
	if cfg.BlockLength <= 0 {
		cfg.BlockLength = finance.DefaultBlockLength(hs.Frequency, hs.Observations)
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.ControlVariate != nil {
		cfg.ControlVariate = *req.ControlVariate
	}
	mode := req.Recenter
	if mode == "" {
		mode = d.Recenter
	}
	var err error
	if cfg.Recenter, err = sim.ParseRecenterMode(mode); err != nil {
		return sim.Config{}, err
	}
	if d.MaxPaths > 0 && (cfg.Paths > d.MaxPaths || cfg.PilotPaths > d.MaxPaths) {
		return sim.Config{}, xerrors.InvalidSimulationConfig("at most %d paths per run, got paths=%d pilot_paths=%d",
			d.MaxPaths, cfg.Paths, cfg.PilotPaths)
	}
	if d.MaxHorizonDays > 0 && cfg.HorizonDays > d.MaxHorizonDays {
		return sim.Config{}, xerrors.InvalidSimulationConfig("horizon_days must be at most %d, got %d", d.MaxHorizonDays, cfg.HorizonDays)
	}
	// 价格矩阵为 (H+1)×N.
	if d.MaxPathCells > 0 && cfg.Paths > 0 && cfg.HorizonDays+1 > d.MaxPathCells/cfg.Paths {
		return sim.Config{}, xerrors.InvalidSimulationConfig("horizon_days=%d with paths=%d exceeds %d simulated prices per run",
			cfg.HorizonDays, cfg.Paths, d.MaxPathCells)
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, err
	}
	return cfg, nil
}

func summarizeHistory(hs *finance.HistoricalStats) HistoricalSummary {
	return HistoricalSummary{
		Frequency:             hs.Frequency.String(),
		TradingDaysPerPeriod:  hs.TradingDaysPerPeriod,
		Observations:          hs.Observations,
		AnnualMean:            hs.AnnualMean,
		AnnualStd:             hs.AnnualStd,
		GeometricAnnualReturn: hs.GeometricAnnualReturn,
		FirstDate:             hs.FirstDate,
		LastDate:              hs.LastDate,
		LastPrice:             hs.LastPrice,
	}
}

func summarizeConfig(cfg sim.Config, tradingDays int) SimulationSummary {
	out := SimulationSummary{
		HorizonDays:    cfg.HorizonDays,
		Paths:          cfg.Paths,
		PilotPaths:     cfg.PilotPaths,
		BlockLength:    cfg.BlockLength,
		Seed:           cfg.Seed,
		Recenter:       cfg.Recenter.String(),
		ControlVariate: cfg.ControlVariate,
	}
	if cfg.Recenter == sim.RecenterLocal {
		out.RecenterWindow = cfg.RecenterWindowFor(tradingDays)
	}
	return out
}

func firstPositive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
