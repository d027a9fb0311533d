package sim

import (
	"math"
	"slices"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// DefaultQuantiles P1, P5, P25, P50, P75, P95, P99.
var DefaultQuantiles = []float64{0.01, 0.05, 0.25, 0.50, 0.75, 0.95, 0.99}

// Band 某一分位数在每个交易日上的价格，长度 H+1.
type Band struct {
	Quantile float64   `json:"quantile"`
	Values   []float64 `json:"values"`
}

// Bands 计算每日的分位数带. quantiles 为空时使用 DefaultQuantiles.
func Bands(paths *PricePathMatrix, quantiles []float64) ([]Band, error) {
	if paths == nil {
		return nil, xerrors.InvalidSimulationConfig("no paths for percentile bands")
	}
	if len(quantiles) == 0 {
		quantiles = DefaultQuantiles
	}
	for _, q := range quantiles {
		if !(q >= 0 && q <= 1) {
			return nil, xerrors.InvalidSimulationConfig("quantile %v outside [0, 1]", q)
		}
	}

	days := paths.Horizon() + 1
	bands := make([]Band, len(quantiles))
	for i, q := range quantiles {
		bands[i] = Band{Quantile: q, Values: make([]float64, days)}
	}
	for t := range days {
		row := paths.Day(t)
		slices.Sort(row)
		for i, q := range quantiles {
			bands[i].Values[t] = stat.Quantile(q, stat.Empirical, row, nil)
		}
	}
	return bands, nil
}

// TerminalStats 最后一日价格分布.
type TerminalStats struct {
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
	StdDev decimal.Decimal `json:"std_dev"`

	// 按 (P_T/P_0)^(252/H) − 1 年化.
	AnnualizedMean   float64 `json:"annualized_mean"`
	AnnualizedMedian float64 `json:"annualized_median"`
}

const terminalPlaces = 6

// Terminal 汇总最后一日价格.
func Terminal(paths *PricePathMatrix) (*TerminalStats, error) {
	if paths == nil {
		return nil, xerrors.InvalidSimulationConfig("no paths for terminal statistics")
	}
	last := paths.Terminal()
	slices.Sort(last)

	sum := decimal.Zero
	for _, p := range last {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(last))))
	_, std := stat.PopMeanStdDev(last, nil)
	median := stat.Quantile(0.5, stat.Empirical, last, nil)

	ts := &TerminalStats{
		Mean:   mean.Round(terminalPlaces),
		Median: decimal.NewFromFloat(median).Round(terminalPlaces),
		Min:    decimal.NewFromFloat(last[0]).Round(terminalPlaces),
		Max:    decimal.NewFromFloat(last[len(last)-1]).Round(terminalPlaces),
		StdDev: decimal.NewFromFloat(std).Round(terminalPlaces),
	}

	if start := paths.At(0, 0); start > 0 {
		exponent := float64(finance.TradingDaysPerYear) / float64(paths.Horizon())
		ts.AnnualizedMean = math.Pow(mean.InexactFloat64()/start, exponent) - 1
		ts.AnnualizedMedian = math.Pow(median/start, exponent) - 1
	}
	return ts, nil
}
