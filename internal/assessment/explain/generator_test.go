package explain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-assist/internal/assessment/decision"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"
)

func eligibleCotton() *decision.DecisionResult {
	return &decision.DecisionResult{
		CropType:        "cotton",
		PredictedLoss:   55,
		Eligible:        true,
		Threshold:       35,
		NDVIBefore:      0.8,
		NDVICurrent:     0.3,
		NDVIDrop:        0.5,
		PrecipitationMM: 600,
		TemperatureC:    35,
	}
}

// neutral returns a decision sitting exactly on every baseline.
func neutral() *decision.DecisionResult {
	return &decision.DecisionResult{
		CropType:        "rice",
		PredictedLoss:   33,
		Eligible:        true,
		Threshold:       33,
		NDVICurrent:     BaselineNDVI,
		PrecipitationMM: BaselineRainfallMM,
		TemperatureC:    BaselineTemperatureC,
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, f := range features {
		sum += f.weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGenerator_Explain_EligibleCotton(t *testing.T) {
	got, err := NewGenerator().Explain(eligibleCotton())
	require.NoError(t, err)

	order := make([]string, 0, len(got.Features))
	for _, f := range got.Features {
		order = append(order, f.Feature)
	}
	assert.Equal(t, []string{FeatureLossPercentage, FeatureNDVITrend, FeatureCurrentNDVI, FeatureTemperature, FeatureRainfall}, order)

	loss := got.Features[0]
	assert.InDelta(t, 0.40*(22.0/33.0), loss.Contribution, 1e-9)
	assert.Equal(t, ImpactIncreases, loss.Impact)
	assert.Equal(t, "the overall level of crop damage (55.0%) raised the assessed loss", loss.Explanation[models.LanguageEnglish])

	assert.Equal(t, FeatureLossPercentage, got.TopFeature)
	assert.Equal(t,
		"Estimated crop loss is 55.0%, mainly driven by the overall level of crop damage. This meets the PMFBY threshold, so you are eligible for compensation.",
		got.Narrative[models.LanguageEnglish])
	assert.Contains(t, got.Narrative[models.LanguageHindi], "55.0%")
	assert.Contains(t, got.Narrative[models.LanguageTelugu], "55.0%")

	assert.Len(t, got.Recommendations[models.LanguageEnglish], 3)
	assert.Equal(t, "File your PMFBY claim within 72 hours of noticing the damage.", got.Recommendations[models.LanguageEnglish][0])

	assert.Equal(t, "Your crops have severe damage.", got.Summary[models.LanguageEnglish])
	assert.Equal(t,
		"For cotton, PMFBY compensation requires at least 35% loss. Your assessed loss of 55.0% meets this threshold.",
		got.PMFBYStatement[models.LanguageEnglish])
	assert.Contains(t, got.PMFBYStatement[models.LanguageHindi], "कपास")
	assert.Contains(t, got.PMFBYStatement[models.LanguageTelugu], "పత్తి")
}

func TestGenerator_Explain_NotEligible(t *testing.T) {
	d := &decision.DecisionResult{
		CropType:        "wheat",
		PredictedLoss:   12.34,
		Threshold:       33,
		NDVICurrent:     0.55,
		NDVIDrop:        0.05,
		PrecipitationMM: 800,
		TemperatureC:    29,
	}

	got, err := NewGenerator().Explain(d)
	require.NoError(t, err)

	assert.Contains(t, got.Narrative[models.LanguageEnglish], "12.3%")
	assert.Contains(t, got.Narrative[models.LanguageEnglish], "not eligible")
	assert.Equal(t, "Continue monitoring crop health every week.", got.Recommendations[models.LanguageEnglish][0])
	assert.Equal(t, ImpactDecreases, got.Features[0].Impact)
	assert.Equal(t, "Your crops show moderate stress with some damage.", got.Summary[models.LanguageEnglish])
}

func TestGenerator_Explain_WeatherRecommendation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *decision.DecisionResult)
		top     string
		wantLen int
		extra   string
	}{
		{
			name:    "rainfall first",
			mutate:  func(d *decision.DecisionResult) { d.PrecipitationMM = 0 },
			top:     FeatureRainfall,
			wantLen: 4,
			extra:   "Check water availability and field drainage before the next irrigation.",
		},
		{
			name:    "temperature first",
			mutate:  func(d *decision.DecisionResult) { d.TemperatureC = 42 },
			top:     FeatureTemperature,
			wantLen: 4,
			extra:   "Irrigate in the early morning or evening to reduce heat stress.",
		},
		{
			name:    "all neutral keeps feature order",
			mutate:  func(d *decision.DecisionResult) {},
			top:     FeatureLossPercentage,
			wantLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := neutral()
			tt.mutate(d)

			got, err := NewGenerator().Explain(d)
			require.NoError(t, err)
			assert.Equal(t, tt.top, got.TopFeature)
			for _, lang := range models.SupportedLanguages {
				assert.Len(t, got.Recommendations[lang], tt.wantLen, lang)
			}
			if tt.extra != "" {
				assert.Equal(t, tt.extra, got.Recommendations[models.LanguageEnglish][tt.wantLen-1])
			}
		})
	}
}

func TestGenerator_Explain_ContributionsBounded(t *testing.T) {
	d := &decision.DecisionResult{
		PredictedLoss:   100,
		NDVIDrop:        1,
		NDVICurrent:     0,
		PrecipitationMM: -100,
		TemperatureC:    80,
	}

	got, err := NewGenerator().Explain(d)
	require.NoError(t, err)
	for _, f := range got.Features {
		assert.LessOrEqual(t, math.Abs(f.Contribution), f.Weight+1e-12, f.Feature)
	}
}

func TestGenerator_Explain_Deterministic(t *testing.T) {
	g := NewGenerator()

	first, err := g.Explain(eligibleCotton())
	require.NoError(t, err)
	second, err := g.Explain(eligibleCotton())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerator_Explain_Nil(t *testing.T) {
	_, err := NewGenerator().Explain(nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInputInvalid, apperrors.CodeOf(err))
}

func TestSummaryTiers(t *testing.T) {
	assert.Equal(t, "Your crops are in good condition with minimal loss detected.", summary(9.99, models.LanguageEnglish))
	assert.Equal(t, "Your crops show moderate stress with some damage.", summary(10, models.LanguageEnglish))
	assert.Equal(t, "Your crops have significant damage.", summary(25, models.LanguageEnglish))
	assert.Equal(t, "Your crops have severe damage.", summary(50, models.LanguageEnglish))
	assert.Equal(t, "Your crops have severe damage.", summary(100, models.LanguageEnglish))
}
