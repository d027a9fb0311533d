package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/cast"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ResidualPool 某一频率下去均值的历史对数收益残差，构建后只读.
type ResidualPool struct {
	residuals   []float64
	tradingDays int
	periodStd   float64
	annualStd   float64
}

// NewResidualPool 复制并去均值后构建残差池. tradingDaysPerPeriod 为 N_F.
func NewResidualPool(residuals []float64, tradingDaysPerPeriod int) (*ResidualPool, error) {
	if len(residuals) == 0 {
		return nil, xerrors.EmptyResidualPool()
	}
	if tradingDaysPerPeriod < 1 || tradingDaysPerPeriod > finance.TradingDaysPerYear {
		return nil, xerrors.InvalidSimulationConfig("trading days per period must be in [1, %d], got %d",
			finance.TradingDaysPerYear, tradingDaysPerPeriod)
	}
	for i, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, xerrors.InvalidSimulationConfig("residual %d is not finite", i)
		}
	}

	p := &ResidualPool{
		residuals:   make([]float64, len(residuals)),
		tradingDays: tradingDaysPerPeriod,
	}
	copy(p.residuals, residuals)
	floats.AddConst(-stat.Mean(p.residuals, nil), p.residuals)

	if len(p.residuals) > 1 {
		p.periodStd = stat.StdDev(p.residuals, nil)
	}
	p.annualStd = p.periodStd * math.Sqrt(float64(finance.TradingDaysPerYear)/float64(tradingDaysPerPeriod))
	if !(p.annualStd >= 1e-8) {
		p.annualStd = finance.VolatilityFloor
	}
	return p, nil
}

// PoolFromStats 由历史统计量构建残差池.
func PoolFromStats(hs *finance.HistoricalStats) (*ResidualPool, error) {
	if hs == nil {
		return nil, xerrors.EmptyResidualPool()
	}
	return NewResidualPool(hs.Residuals, hs.TradingDaysPerPeriod)
}

// Len 残差个数.
func (p *ResidualPool) Len() int { return len(p.residuals) }

// TradingDays 每个周期的交易日数 N_F.
func (p *ResidualPool) TradingDays() int { return p.tradingDays }

// PeriodStd 周期残差样本标准差.
func (p *ResidualPool) PeriodStd() float64 { return p.periodStd }

// AnnualStd 年化历史波动率，退化时为下限值.
func (p *ResidualPool) AnnualStd() float64 { return p.annualStd }

// Mean 残差均值，构建后应接近 0.
func (p *ResidualPool) Mean() float64 { return stat.Mean(p.residuals, nil) }

// Residuals 返回残差副本.
func (p *ResidualPool) Residuals() []float64 {
	out := make([]float64, len(p.residuals))
	copy(out, p.residuals)
	return out
}

// Sample 从残差池做循环块自助抽样.
func (p *ResidualPool) Sample(m, blockLen int, rng *rand.Rand) ([]float64, error) {
	return bootstrap(p.residuals, m, blockLen, rng)
}

// Fingerprint 残差内容与 N_F 的 SHA-256 摘要，用作缓存键的一部分.
func (p *ResidualPool) Fingerprint() [32]byte {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], cast.IntToUint64(p.tradingDays))
	h.Write(buf[:])
	for _, r := range p.residuals {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(r))
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ScaledResiduals 已按目标波动率缩放的残差. Recenter 只接受该类型，
// 保证去均值总是发生在缩放之后.
type ScaledResiduals struct {
	values []float64
}

// Scale 以 volScale 缩放残差，返回新切片.
func Scale(residuals []float64, volScale float64) ScaledResiduals {
	out := make([]float64, len(residuals))
	for i, r := range residuals {
		out[i] = r * volScale
	}
	return ScaledResiduals{values: out}
}

// Len 周期数.
func (s ScaledResiduals) Len() int { return len(s.values) }

// At 第 i 个周期的缩放残差.
func (s ScaledResiduals) At(i int) float64 { return s.values[i] }

// Values 返回副本.
func (s ScaledResiduals) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// RecenterMode 缩放后残差的去均值方式.
type RecenterMode int

const (
	// RecenterNone 不做任何去均值.
	RecenterNone RecenterMode = iota
	// RecenterLocal 对连续的固定窗口分别去均值，窗口覆盖整个区间时跳过.
	RecenterLocal
)

// String 返回模式名称.
func (m RecenterMode) String() string {
	switch m {
	case RecenterLocal:
		return "local"
	default:
		return "none"
	}
}

// ParseRecenterMode 解析模式名称，空字符串视为 none.
func ParseRecenterMode(s string) (RecenterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return RecenterNone, nil
	case "local":
		return RecenterLocal, nil
	default:
		return RecenterNone, xerrors.InvalidSimulationConfig("unknown recenter mode %q", s)
	}
}

// Recenter 按模式对缩放后的残差去均值，返回新值.
// RecenterLocal 只对在最后一个周期之前结束的完整窗口去均值，
// 包含最后一个周期的窗口保持原样，因此整段区间的均值从不被强制为零.
func Recenter(s ScaledResiduals, mode RecenterMode, window int) ScaledResiduals {
	if mode != RecenterLocal || window < 1 || window >= len(s.values) {
		return s
	}
	out := make([]float64, len(s.values))
	copy(out, s.values)
	for start := 0; start+window < len(out); start += window {
		seg := out[start : start+window]
		floats.AddConst(-stat.Mean(seg, nil), seg)
	}
	return ScaledResiduals{values: out}
}

// recenterWarnings 检查局部去均值窗口是否退化.
func recenterWarnings(mode RecenterMode, window, periods int) []error {
	if mode != RecenterLocal || window < periods {
		return nil
	}
	return []error{xerrors.DegenerateRecenterWindow(
		"window of %d periods covers the whole %d-period horizon, recentering skipped", window, periods)}
}
