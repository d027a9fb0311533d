package sim

import (
	"math"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/stat"
)

// YearStats 第 Year 个模拟年度的跨路径统计.
type YearStats struct {
	Year int     `json:"year"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ValidationReport 模拟路径的年化算术收益与目标的比较.
type ValidationReport struct {
	Target       float64     `json:"target"`
	YearsPerPath int         `json:"years_per_path"`
	Observations int         `json:"observations"`
	MeanReturn   float64     `json:"mean_return"`
	StdReturn    float64     `json:"std_return"`
	StdError     float64     `json:"std_error"`
	Gap          float64     `json:"gap"`
	ByYear       []YearStats `json:"by_year"`
}

// WithinStandardErrors 判断 |Gap| 是否不超过 k 倍合成标准误.
// extraSE 为其他独立误差来源（如校准的试点标准误）.
func (r *ValidationReport) WithinStandardErrors(k, extraSE float64) bool {
	se := math.Hypot(r.StdError, extraSE)
	return math.Abs(r.Gap) <= k*se
}

// Validate 把每条路径切成不重叠的 252 日窗口，计算 end/start − 1 并汇总.
func Validate(paths *PricePathMatrix, target float64) (*ValidationReport, error) {
	if paths == nil {
		return nil, xerrors.InvalidSimulationConfig("no paths to validate")
	}
	const year = finance.TradingDaysPerYear
	years := paths.Horizon() / year
	if years < 1 {
		return nil, xerrors.InvalidSimulationConfig("horizon of %d days is shorter than one year", paths.Horizon())
	}

	idx := make([]int, paths.Paths())
	for j := range idx {
		idx[j] = j
	}
	perPath := iter.Map(idx, func(j *int) []float64 {
		return pathAnnualReturns(paths, *j, years)
	})

	all := make([]float64, 0, len(perPath)*years)
	byYear := make([][]float64, years)
	for _, rs := range perPath {
		all = append(all, rs...)
		for y, r := range rs {
			byYear[y] = append(byYear[y], r)
		}
	}

	rep := &ValidationReport{
		Target:       target,
		YearsPerPath: years,
		Observations: len(all),
		ByYear:       make([]YearStats, years),
	}
	rep.MeanReturn, rep.StdReturn = stat.PopMeanStdDev(all, nil)
	rep.StdError = rep.StdReturn / math.Sqrt(float64(len(all)))
	rep.Gap = rep.MeanReturn - target
	for y, rs := range byYear {
		m, s := stat.PopMeanStdDev(rs, nil)
		rep.ByYear[y] = YearStats{Year: y + 1, Mean: m, Std: s}
	}
	return rep, nil
}

// AnnualReturns 返回所有路径所有完整年度的算术收益，按路径优先排列.
func AnnualReturns(paths *PricePathMatrix) []float64 {
	years := paths.Horizon() / finance.TradingDaysPerYear
	out := make([]float64, 0, years*paths.Paths())
	for j := range paths.Paths() {
		out = append(out, pathAnnualReturns(paths, j, years)...)
	}
	return out
}

func pathAnnualReturns(paths *PricePathMatrix, j, years int) []float64 {
	const year = finance.TradingDaysPerYear
	out := make([]float64, years)
	for y := range years {
		out[y] = paths.At((y+1)*year, j)/paths.At(y*year, j) - 1
	}
	return out
}
