package forecast

import (
	"math"
	"strings"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/config"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"
)

// Outlook 收益观点.
type Outlook string

const (
	OutlookPessimistic Outlook = "pessimistic"
	OutlookBase        Outlook = "base"
	OutlookOptimistic  Outlook = "optimistic"
)

// Mood 波动率观点.
type Mood string

const (
	MoodCalm      Mood = "calm"
	MoodNormal    Mood = "normal"
	MoodTurbulent Mood = "turbulent"
)

// Confidence 观点相对历史的混合权重档位.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Views 调用方的前瞻观点. 空字段取 base / normal / medium.
// 指针字段非空时直接覆盖对应的映射值.
type Views struct {
	Outlook    Outlook    `json:"outlook,omitempty"`
	Mood       Mood       `json:"mood,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`

	ReturnOverride     *float64 `json:"return_override,omitempty"`
	VolatilityOverride *float64 `json:"volatility_override,omitempty"`
	WeightOverride     *float64 `json:"weight_override,omitempty"`
}

// Targets 观点与历史混合后的模拟目标.
type Targets struct {
	HistoricalReturn float64 `json:"historical_return"` // exp(μ_hist_annual) − 1
	ViewReturn       float64 `json:"view_return"`
	Weight           float64 `json:"weight"`
	TargetReturn     float64 `json:"target_return"` // (1−w)·历史 + w·观点
	TargetVolatility float64 `json:"target_volatility"`

	Outlook    Outlook    `json:"outlook"`
	Mood       Mood       `json:"mood"`
	Confidence Confidence `json:"confidence"`
}

// Resolve 把观点映射为数值，并在算术收益空间与历史收益混合.
func (v Views) Resolve(hs *finance.HistoricalStats, vc config.ViewsConfig) (Targets, error) {
	if hs == nil {
		return Targets{}, xerrors.InvalidView("historical statistics are required")
	}

	t := Targets{
		Outlook:    Outlook(strings.ToLower(string(v.Outlook))),
		Mood:       Mood(strings.ToLower(string(v.Mood))),
		Confidence: Confidence(strings.ToLower(string(v.Confidence))),
	}
	if t.Outlook == "" {
		t.Outlook = OutlookBase
	}
	if t.Mood == "" {
		t.Mood = MoodNormal
	}
	if t.Confidence == "" {
		t.Confidence = ConfidenceMedium
	}

	t.HistoricalReturn = math.Expm1(hs.AnnualMean)

	switch {
	case v.ReturnOverride != nil:
		t.ViewReturn = *v.ReturnOverride
	case t.Outlook == OutlookPessimistic:
		t.ViewReturn = t.HistoricalReturn - vc.OutlookShift
	case t.Outlook == OutlookBase:
		t.ViewReturn = t.HistoricalReturn
	case t.Outlook == OutlookOptimistic:
		t.ViewReturn = t.HistoricalReturn + vc.OutlookShift
	default:
		return Targets{}, xerrors.InvalidView("unknown outlook %q", v.Outlook)
	}

	switch {
	case v.VolatilityOverride != nil:
		t.TargetVolatility = *v.VolatilityOverride
	case t.Mood == MoodCalm:
		t.TargetVolatility = vc.Calm
	case t.Mood == MoodNormal:
		t.TargetVolatility = vc.Normal
	case t.Mood == MoodTurbulent:
		t.TargetVolatility = vc.Turbulent
	default:
		return Targets{}, xerrors.InvalidView("unknown market mood %q", v.Mood)
	}

	switch {
	case v.WeightOverride != nil:
		t.Weight = *v.WeightOverride
	case t.Confidence == ConfidenceLow:
		t.Weight = vc.LowWeight
	case t.Confidence == ConfidenceMedium:
		t.Weight = vc.MediumWeight
	case t.Confidence == ConfidenceHigh:
		t.Weight = vc.HighWeight
	default:
		return Targets{}, xerrors.InvalidView("unknown confidence %q", v.Confidence)
	}

	if !(t.Weight >= 0 && t.Weight <= 1) {
		return Targets{}, xerrors.InvalidView("blend weight must lie in [0, 1], got %v", t.Weight)
	}
	if !(t.TargetVolatility >= 0) || math.IsInf(t.TargetVolatility, 0) {
		return Targets{}, xerrors.InvalidView("volatility must be finite and non-negative, got %v", t.TargetVolatility)
	}
	if math.IsNaN(t.ViewReturn) || math.IsInf(t.ViewReturn, 0) {
		return Targets{}, xerrors.InvalidView("view return must be finite, got %v", t.ViewReturn)
	}

	t.TargetReturn = (1-t.Weight)*t.HistoricalReturn + t.Weight*t.ViewReturn
	if !(t.TargetReturn > -1) {
		return Targets{}, xerrors.InvalidView("blended target return %v is not above -100%%", t.TargetReturn)
	}
	return t, nil
}
