package finance

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"gonum.org/v1/gonum/stat"
)

const (
	// TradingDaysPerYear 年化使用的交易日数.
	TradingDaysPerYear = 252
	// MinStableObservations 稳定估计所需的最少周期数.
	MinStableObservations = 36
	// VolatilityFloor 历史波动率退化时使用的年化波动率下限.
	VolatilityFloor = 0.01

	volatilityEpsilon = 1e-8
	daysPerYear       = 365.25
)

// Frequency 历史数据的采样频率.
type Frequency int

const (
	FrequencyDaily Frequency = iota + 1
	FrequencyWeekly
	FrequencyMonthly
	FrequencyQuarterly
	FrequencyAnnual
)

// String 返回频率名称.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyMonthly:
		return "monthly"
	case FrequencyQuarterly:
		return "quarterly"
	case FrequencyAnnual:
		return "annual"
	default:
		return "unknown"
	}
}

// TradingDays 每个周期包含的交易日数 N_F.
func (f Frequency) TradingDays() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyWeekly:
		return 5
	case FrequencyQuarterly:
		return 63
	case FrequencyAnnual:
		return TradingDaysPerYear
	default:
		return 21
	}
}

// PeriodsPerYear 每年包含的周期数.
func (f Frequency) PeriodsPerYear() float64 {
	return float64(TradingDaysPerYear) / float64(f.TradingDays())
}

// ParseFrequency 解析频率名称，未知名称返回 false.
func ParseFrequency(s string) (Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return FrequencyDaily, true
	case "weekly":
		return FrequencyWeekly, true
	case "monthly":
		return FrequencyMonthly, true
	case "quarterly":
		return FrequencyQuarterly, true
	case "annual", "yearly":
		return FrequencyAnnual, true
	default:
		return 0, false
	}
}

// PricePoint 单个观测点.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries 日期严格递增、价格严格为正的历史价格序列，创建后不可变.
type PriceSeries struct {
	points []PricePoint
}

// NewPriceSeries 校验并复制输入，返回不可变的价格序列.
func NewPriceSeries(points []PricePoint) (*PriceSeries, error) {
	if len(points) < 2 {
		return nil, xerrors.InvalidPriceSeries("need at least 2 prices, got %d", len(points))
	}
	cp := make([]PricePoint, len(points))
	copy(cp, points)

	for i, p := range cp {
		if !(p.Price > 0) || math.IsInf(p.Price, 0) {
			return nil, xerrors.InvalidPriceSeries("price at index %d is %v, prices must be strictly positive", i, p.Price)
		}
		if i > 0 && !p.Date.After(cp[i-1].Date) {
			return nil, xerrors.InvalidPriceSeries("date at index %d (%s) is not after %s",
				i, p.Date.Format(time.DateOnly), cp[i-1].Date.Format(time.DateOnly))
		}
	}
	return &PriceSeries{points: cp}, nil
}

// Len 返回观测点数量.
func (s *PriceSeries) Len() int { return len(s.points) }

// At 返回第 i 个观测点.
func (s *PriceSeries) At(i int) PricePoint { return s.points[i] }

// First 返回第一个观测点.
func (s *PriceSeries) First() PricePoint { return s.points[0] }

// Last 返回最后一个观测点.
func (s *PriceSeries) Last() PricePoint { return s.points[len(s.points)-1] }

// Points 返回观测点副本.
func (s *PriceSeries) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Dates 返回日期副本.
func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// LogReturns 返回相邻观测点的对数收益率.
func (s *PriceSeries) LogReturns() []float64 {
	out := make([]float64, len(s.points)-1)
	for i := 1; i < len(s.points); i++ {
		out[i-1] = math.Log(s.points[i].Price / s.points[i-1].Price)
	}
	return out
}

// InferFrequency 根据相邻日期间隔的中位数推断频率.
// 无法归类的间隔按月度处理，并返回一个数据质量告警.
func InferFrequency(dates []time.Time) (Frequency, float64, error) {
	if len(dates) < 2 {
		return FrequencyMonthly, 0, xerrors.InvalidPriceSeries("need at least 2 dates to infer frequency")
	}
	gaps := make([]float64, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps[i-1] = math.Floor(dates[i].Sub(dates[i-1]).Hours() / 24)
	}
	gap := median(gaps)

	switch {
	case gap <= 2:
		return FrequencyDaily, gap, nil
	case gap >= 5 && gap <= 9:
		return FrequencyWeekly, gap, nil
	case gap >= 20 && gap <= 40:
		return FrequencyMonthly, gap, nil
	case gap >= 60 && gap <= 100:
		return FrequencyQuarterly, gap, nil
	case gap >= 300:
		return FrequencyAnnual, gap, nil
	default:
		return FrequencyMonthly, gap, xerrors.AmbiguousFrequency(gap)
	}
}

// HistoricalStats 历史统计量及残差池原料.
type HistoricalStats struct {
	Frequency            Frequency
	TradingDaysPerPeriod int
	Observations         int
	MedianGapDays        float64

	PeriodMean float64 // 周期对数收益均值
	PeriodStd  float64 // 周期对数收益样本标准差

	AnnualMean   float64 // mean / N_F * 252
	AnnualStd    float64 // 已应用下限
	RawAnnualStd float64 // 未应用下限的原始值

	GeometricAnnualReturn float64

	Residuals []float64

	LastPrice float64
	LastDate  time.Time
	FirstDate time.Time

	// Warnings 可降级的数据质量问题，均为 xerrors.ErrDataQuality 类型.
	Warnings []error
}

// Estimate 从价格序列推断频率并计算周期与年化统计量.
// 数据质量问题只产生告警，结构性错误才返回 error.
func Estimate(series *PriceSeries) (*HistoricalStats, error) {
	if series == nil || series.Len() < 2 {
		return nil, xerrors.InvalidPriceSeries("need at least 2 prices")
	}

	freq, gap, warn := InferFrequency(series.Dates())
	hs := &HistoricalStats{
		Frequency:            freq,
		TradingDaysPerPeriod: freq.TradingDays(),
		MedianGapDays:        gap,
		LastPrice:            series.Last().Price,
		LastDate:             series.Last().Date,
		FirstDate:            series.First().Date,
	}
	if warn != nil {
		hs.Warnings = append(hs.Warnings, warn)
	}

	returns := series.LogReturns()
	hs.Observations = len(returns)
	if hs.Observations < MinStableObservations {
		hs.Warnings = append(hs.Warnings, xerrors.InsufficientData(hs.Observations, MinStableObservations))
	}

	if len(returns) > 1 {
		hs.PeriodMean, hs.PeriodStd = stat.MeanStdDev(returns, nil)
	} else {
		hs.PeriodMean = returns[0]
	}
	nf := float64(hs.TradingDaysPerPeriod)
	hs.AnnualMean = hs.PeriodMean / nf * TradingDaysPerYear
	hs.RawAnnualStd = hs.PeriodStd * math.Sqrt(TradingDaysPerYear/nf)
	hs.AnnualStd = hs.RawAnnualStd
	if !(hs.AnnualStd >= volatilityEpsilon) {
		hs.Warnings = append(hs.Warnings, xerrors.DegenerateVolatility(hs.RawAnnualStd, VolatilityFloor))
		hs.AnnualStd = VolatilityFloor
	}

	hs.Residuals = make([]float64, len(returns))
	for i, r := range returns {
		hs.Residuals[i] = r - hs.PeriodMean
	}

	years := series.Last().Date.Sub(series.First().Date).Hours() / 24 / daysPerYear
	if years > 0 {
		hs.GeometricAnnualReturn = math.Pow(series.Last().Price/series.First().Price, 1/years) - 1
	}
	return hs, nil
}

// DefaultBlockLength 按频率给出 bootstrap 块长度，样本不足时收缩.
func DefaultBlockLength(freq Frequency, observations int) int {
	l := 6
	switch freq {
	case FrequencyDaily:
		l = 20
	case FrequencyQuarterly:
		l = 4
	case FrequencyAnnual:
		l = 2
	}
	if observations < MinStableObservations {
		l = max(2, min(l, observations/6))
	}
	return l
}

// median 偶数个元素时取中间两值的平均.
func median(xs []float64) float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
