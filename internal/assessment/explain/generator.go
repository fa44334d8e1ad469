// Package explain ranks the inputs of a decision by their weighted influence
// and renders template-based narratives in every supported language.
package explain

import (
	"fmt"
	"math"
	"sort"

	"crop-assist/internal/assessment/decision"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/models"
)

const (
	FeatureLossPercentage = "loss_percentage"
	FeatureNDVITrend      = "ndvi_trend"
	FeatureCurrentNDVI    = "current_ndvi"
	FeatureRainfall       = "rainfall"
	FeatureTemperature    = "temperature"
)

const (
	ImpactIncreases = "increases"
	ImpactDecreases = "decreases"
	ImpactNeutral   = "neutral"
)

// Baselines the deviations are measured against.
const (
	BaselineLossPercentage = 33.0
	BaselineNDVIDrop       = 0.6
	BaselineNDVI           = 0.6
	BaselineRainfallMM     = 750.0
	BaselineTemperatureC   = 30.0
	TemperatureSpanC       = 10.0

	impactEpsilon = 0.01
)

type feature struct {
	name      string
	weight    float64
	value     func(d *decision.DecisionResult) float64
	deviation func(v float64) float64
	format    string
}

// features is the fixed feature order; ties in ranking keep this order.
// Weights sum to 1.
var features = []feature{
	{
		name:      FeatureLossPercentage,
		weight:    0.40,
		value:     func(d *decision.DecisionResult) float64 { return d.PredictedLoss },
		deviation: func(v float64) float64 { return (v - BaselineLossPercentage) / BaselineLossPercentage },
		format:    "%.1f%%",
	},
	{
		name:      FeatureNDVITrend,
		weight:    0.25,
		value:     func(d *decision.DecisionResult) float64 { return d.NDVIDrop },
		deviation: func(v float64) float64 { return v / BaselineNDVIDrop },
		format:    "%.2f",
	},
	{
		name:      FeatureCurrentNDVI,
		weight:    0.15,
		value:     func(d *decision.DecisionResult) float64 { return d.NDVICurrent },
		deviation: func(v float64) float64 { return (BaselineNDVI - v) / BaselineNDVI },
		format:    "%.2f",
	},
	{
		name:      FeatureRainfall,
		weight:    0.12,
		value:     func(d *decision.DecisionResult) float64 { return d.PrecipitationMM },
		deviation: func(v float64) float64 { return (BaselineRainfallMM - v) / BaselineRainfallMM },
		format:    "%.0f mm",
	},
	{
		name:      FeatureTemperature,
		weight:    0.08,
		value:     func(d *decision.DecisionResult) float64 { return d.TemperatureC },
		deviation: func(v float64) float64 { return (v - BaselineTemperatureC) / TemperatureSpanC },
		format:    "%.1f°C",
	},
}

type FeatureContribution struct {
	Feature      string                     `json:"feature"`
	Value        float64                    `json:"value"`
	Weight       float64                    `json:"weight"`
	Contribution float64                    `json:"contribution"`
	Impact       string                     `json:"impact"`
	Explanation  map[models.Language]string `json:"explanation"`
}

type Explanation struct {
	Features        []FeatureContribution        `json:"features"`
	TopFeature      string                       `json:"topFeature"`
	Narrative       map[models.Language]string   `json:"narrative"`
	Recommendations map[models.Language][]string `json:"recommendations"`
	Summary         map[models.Language]string   `json:"summary"`
	PMFBYStatement  map[models.Language]string   `json:"pmfbyStatement"`
}

// Generator has no state; Explain is a pure function of the decision.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Explain renders the explanation for a successful decision.
func (g *Generator) Explain(d *decision.DecisionResult) (*Explanation, error) {
	if d == nil {
		return nil, apperrors.NewInputInvalidError("decision result is required")
	}

	contributions := make([]FeatureContribution, 0, len(features))
	for _, f := range features {
		v := f.value(d)
		c := f.weight * clamp(f.deviation(v), -1, 1)
		fc := FeatureContribution{
			Feature:      f.name,
			Value:        v,
			Weight:       f.weight,
			Contribution: c,
			Impact:       impact(c),
		}
		fc.Explanation = make(map[models.Language]string, len(models.SupportedLanguages))
		formatted := fmt.Sprintf(f.format, v)
		for _, lang := range models.SupportedLanguages {
			fc.Explanation[lang] = fmt.Sprintf(impactTemplates[lang][fc.Impact], featureNames[f.name][lang], formatted)
		}
		contributions = append(contributions, fc)
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return math.Abs(contributions[i].Contribution) > math.Abs(contributions[j].Contribution)
	})
	top := contributions[0].Feature

	out := &Explanation{
		Features:        contributions,
		TopFeature:      top,
		Narrative:       make(map[models.Language]string, len(models.SupportedLanguages)),
		Recommendations: make(map[models.Language][]string, len(models.SupportedLanguages)),
		Summary:         make(map[models.Language]string, len(models.SupportedLanguages)),
		PMFBYStatement:  make(map[models.Language]string, len(models.SupportedLanguages)),
	}

	for _, lang := range models.SupportedLanguages {
		out.Narrative[lang] = fmt.Sprintf(narrativeTemplates[lang][d.Eligible], d.PredictedLoss, featureNames[top][lang])

		recs := append([]string(nil), recommendations[lang][d.Eligible]...)
		if extra, ok := weatherRecommendations[top]; ok {
			recs = append(recs, extra[lang])
		}
		out.Recommendations[lang] = recs

		out.Summary[lang] = summary(d.PredictedLoss, lang)
		out.PMFBYStatement[lang] = fmt.Sprintf(pmfbyTemplates[lang][d.Eligible], cropName(d.CropType, lang), d.Threshold, d.PredictedLoss)
	}
	return out, nil
}

func impact(c float64) string {
	switch {
	case c > impactEpsilon:
		return ImpactIncreases
	case c < -impactEpsilon:
		return ImpactDecreases
	default:
		return ImpactNeutral
	}
}

func summary(loss float64, lang models.Language) string {
	for _, tier := range summaryTiers {
		if loss < tier.below {
			return tier.text[lang]
		}
	}
	return summaryTiers[len(summaryTiers)-1].text[lang]
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
