package xerrors

import "fmt"

// 模拟与估计相关的错误码.
const (
	CodeInvalidPriceSeries      = 400101
	CodeEmptyResidualPool       = 400102
	CodeInvalidSimulationConfig = 400103
	CodeInvalidView             = 400104

	CodeNonConvergentCalibration = 500101

	CodeInsufficientData         = 200101
	CodeDegenerateVolatility     = 200102
	CodeAmbiguousFrequency       = 200103
	CodeDegenerateRecenterWindow = 200104
)

var (
	// ErrInvalidPriceSeries 价格序列不合法（长度不足、非正价格、日期未严格递增）.
	ErrInvalidPriceSeries = New(ErrInvalidArg, CodeInvalidPriceSeries, "invalid price series", "", nil)
	// ErrEmptyResidualPool 残差池为空，无法进行 bootstrap.
	ErrEmptyResidualPool = New(ErrInvalidArg, CodeEmptyResidualPool, "empty residual pool", "", nil)
	// ErrInvalidSimulationConfig 模拟参数错误.
	ErrInvalidSimulationConfig = New(ErrInvalidArg, CodeInvalidSimulationConfig, "invalid simulation config", "", nil)
	// ErrInvalidView 预期观点参数错误.
	ErrInvalidView = New(ErrInvalidArg, CodeInvalidView, "invalid forward view", "", nil)
	// ErrNonConvergentCalibration 漂移校准失败，试点样本的 mean(exp(S)) 不可用.
	ErrNonConvergentCalibration = New(ErrInternal, CodeNonConvergentCalibration, "drift calibration did not converge", "", nil)

	// ErrInsufficientData 历史样本数低于稳定阈值（告警）.
	ErrInsufficientData = New(ErrDataQuality, CodeInsufficientData, "insufficient data", "", nil)
	// ErrDegenerateVolatility 历史波动率接近零，已替换为下限（告警）.
	ErrDegenerateVolatility = New(ErrDataQuality, CodeDegenerateVolatility, "degenerate volatility", "", nil)
	// ErrAmbiguousFrequency 无法识别数据频率，已按月度处理（告警）.
	ErrAmbiguousFrequency = New(ErrDataQuality, CodeAmbiguousFrequency, "ambiguous frequency", "", nil)
	// ErrDegenerateRecenterWindow 局部去均值窗口覆盖整个区间，未做去均值（告警）.
	ErrDegenerateRecenterWindow = New(ErrDataQuality, CodeDegenerateRecenterWindow, "degenerate recenter window", "", nil)
)

// InvalidPriceSeries 返回携带具体原因的价格序列错误.
func InvalidPriceSeries(format string, args ...any) *Error {
	return New(ErrInvalidArg, CodeInvalidPriceSeries, "invalid price series", fmt.Sprintf(format, args...), nil)
}

// InvalidSimulationConfig 返回携带具体原因的配置错误.
func InvalidSimulationConfig(format string, args ...any) *Error {
	return New(ErrInvalidArg, CodeInvalidSimulationConfig, "invalid simulation config", fmt.Sprintf(format, args...), nil)
}

// InvalidView 返回携带具体原因的观点参数错误.
func InvalidView(format string, args ...any) *Error {
	return New(ErrInvalidArg, CodeInvalidView, "invalid forward view", fmt.Sprintf(format, args...), nil)
}

// EmptyResidualPool 返回残差池为空错误.
func EmptyResidualPool() *Error {
	return New(ErrInvalidArg, CodeEmptyResidualPool, "empty residual pool", "cannot bootstrap from an empty pool", nil)
}

// NonConvergentCalibration 返回校准失败错误.
func NonConvergentCalibration(format string, args ...any) *Error {
	return New(ErrInternal, CodeNonConvergentCalibration, "drift calibration did not converge", fmt.Sprintf(format, args...), nil)
}

// InsufficientData 样本不足告警.
func InsufficientData(observations, minimum int) *Error {
	return New(ErrDataQuality, CodeInsufficientData, "insufficient data",
		fmt.Sprintf("only %d observations, recommend %d+ for stable estimates", observations, minimum), nil).
		WithContext("observations", observations)
}

// DegenerateVolatility 波动率退化告警.
func DegenerateVolatility(observed, floor float64) *Error {
	return New(ErrDataQuality, CodeDegenerateVolatility, "degenerate volatility",
		fmt.Sprintf("annualized volatility %.3g is near zero, using floor %.4f", observed, floor), nil)
}

// AmbiguousFrequency 频率无法识别告警.
func AmbiguousFrequency(medianGapDays float64) *Error {
	return New(ErrDataQuality, CodeAmbiguousFrequency, "ambiguous frequency",
		fmt.Sprintf("median gap of %.1f days, defaulting to monthly", medianGapDays), nil)
}

// DegenerateRecenterWindow 去均值窗口退化告警.
func DegenerateRecenterWindow(format string, args ...any) *Error {
	return New(ErrDataQuality, CodeDegenerateRecenterWindow, "degenerate recenter window", fmt.Sprintf(format, args...), nil)
}
