package forecast

import (
	"math"
	"testing"

	"github.com/zmatula/Fund-Analysis-Platform-sub000/algorithm/finance"
	"github.com/zmatula/Fund-Analysis-Platform-sub000/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestViewsResolve(t *testing.T) {
	vc := testSimulationConfig().Views
	hs := &finance.HistoricalStats{AnnualMean: math.Log(1.08)}

	tests := []struct {
		name       string
		views      Views
		wantView   float64
		wantWeight float64
		wantVol    float64
	}{
		{"defaults", Views{}, 0.08, 0.50, 0.18},
		{"pessimistic calm low", Views{Outlook: OutlookPessimistic, Mood: MoodCalm, Confidence: ConfidenceLow}, -0.02, 0.25, 0.12},
		{"optimistic turbulent high", Views{Outlook: "Optimistic", Mood: MoodTurbulent, Confidence: ConfidenceHigh}, 0.18, 0.75, 0.28},
		{"overrides", Views{ReturnOverride: ptr(0.30), VolatilityOverride: ptr(0.05), WeightOverride: ptr(1.0)}, 0.30, 1.0, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.views.Resolve(hs, vc)
			require.NoError(t, err)
			assert.InDelta(t, 0.08, got.HistoricalReturn, 1e-12)
			assert.InDelta(t, tt.wantView, got.ViewReturn, 1e-12)
			assert.InDelta(t, tt.wantWeight, got.Weight, 1e-12)
			assert.InDelta(t, tt.wantVol, got.TargetVolatility, 1e-12)
			want := (1-tt.wantWeight)*0.08 + tt.wantWeight*tt.wantView
			assert.InDelta(t, want, got.TargetReturn, 1e-12)
		})
	}
}

func TestViewsResolveRejectsInvalid(t *testing.T) {
	vc := testSimulationConfig().Views
	hs := &finance.HistoricalStats{AnnualMean: 0.05}

	for name, v := range map[string]Views{
		"outlook":    {Outlook: "bullish"},
		"mood":       {Mood: "panicky"},
		"confidence": {Confidence: "certain"},
		"weight":     {WeightOverride: ptr(1.5)},
		"volatility": {VolatilityOverride: ptr(-0.1)},
		"return":     {ReturnOverride: ptr(-3.0), WeightOverride: ptr(1.0)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Resolve(hs, vc)
			assert.ErrorIs(t, err, xerrors.ErrInvalidView)
		})
	}

	_, err := Views{}.Resolve(nil, vc)
	assert.ErrorIs(t, err, xerrors.ErrInvalidView)
}
