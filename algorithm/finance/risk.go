package finance

import (
	"math"
	"slices"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"gonum.org/v1/gonum/stat"
)

// RiskCalculator 路径与收益分布上的风险度量.
type RiskCalculator struct{}

// NewRiskCalculator 创建 RiskCalculator.
func NewRiskCalculator() *RiskCalculator {
	return &RiskCalculator{}
}

// MaxDrawdown 计算价格路径的最大回撤，结果位于 [0, 1).
func (c *RiskCalculator) MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	var maxDD float64
	for _, p := range prices {
		if p > peak {
			peak = p
		}
		if peak > 0 {
			if dd := (peak - p) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// ValueAtRisk 历史模拟法 VaR，以正数表示给定置信度下的损失.
func (c *RiskCalculator) ValueAtRisk(returns []float64, confidence float64) (float64, error) {
	if len(returns) == 0 {
		return 0, xerrors.InvalidArg("value at risk needs at least one return")
	}
	if !(confidence > 0 && confidence < 1) {
		return 0, xerrors.InvalidArg("confidence must be in (0, 1)")
	}
	sorted := slices.Clone(returns)
	slices.Sort(sorted)
	q := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
	return -q, nil
}

// ExpectedShortfall 尾部平均损失 (CVaR)，以正数表示.
func (c *RiskCalculator) ExpectedShortfall(returns []float64, confidence float64) (float64, error) {
	v, err := c.ValueAtRisk(returns, confidence)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, r := range returns {
		if -r >= v {
			sum += r
			n++
		}
	}
	if n == 0 {
		return v, nil
	}
	return -sum / float64(n), nil
}

// ProbabilityOfLoss 收益为负的比例.
func (c *RiskCalculator) ProbabilityOfLoss(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var n int
	for _, r := range returns {
		if r < 0 {
			n++
		}
	}
	return float64(n) / float64(len(returns))
}

// SharpeRatio 以总体标准差计算的夏普比率，波动为零时返回 0.
func (c *RiskCalculator) SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (mean - riskFreeRate) / std
}
