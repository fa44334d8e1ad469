// Package assessment ties the geo lookup, decision engine and explanation
// generator together for the API, the workflow workers and the voice pipeline.
package assessment

import (
	"context"
	"strconv"
	"time"

	"crop-assist/internal/assessment/decision"
	"crop-assist/internal/assessment/explain"
	"crop-assist/internal/assessment/geo"
	"crop-assist/internal/audit"
	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
	"crop-assist/internal/common/metrics"
	"crop-assist/internal/models"
)

// Request is one crop-loss assessment. Pointer fields are optional overrides.
type Request struct {
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	CropType     string          `json:"cropType"`
	Language     models.Language `json:"language"`
	AreaHectares float64         `json:"areaHectares,omitempty"`
	NDVIBefore   *float64        `json:"ndviBefore,omitempty"`
	NDVICurrent  *float64        `json:"ndviCurrent,omitempty"`
	RainfallMM   *float64        `json:"rainfall,omitempty"`
	TemperatureC *float64        `json:"temperature,omitempty"`
}

// Assessment is the decision with its explanation, plus the narrative and
// recommendations in the requested language.
type Assessment struct {
	Decision        *decision.DecisionResult `json:"decision"`
	Explanation     *explain.Explanation     `json:"explanation"`
	Language        models.Language          `json:"language"`
	Narrative       string                   `json:"narrative"`
	Recommendations []string                 `json:"recommendations"`
}

// IndexProvider returns the loaded geo index.
type IndexProvider interface {
	Index(ctx context.Context) (*geo.Index, error)
}

type Analyzer struct {
	geo       IndexProvider
	engine    *decision.Engine
	generator *explain.Generator
	audit     audit.Sink
	logger    logger.Logger
}

func NewAnalyzer(geoIndex IndexProvider, engine *decision.Engine, generator *explain.Generator, sink audit.Sink, log logger.Logger) *Analyzer {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Analyzer{
		geo:       geoIndex,
		engine:    engine,
		generator: generator,
		audit:     sink,
		logger:    log,
	}
}

// Analyze runs Decide and Explain and records the outcome in the audit index.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Assessment, error) {
	lang, err := resolveLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	d, err := a.Decide(ctx, req)
	if err != nil {
		a.record(ctx, req, nil, err)
		return nil, err
	}

	exp, err := a.Explain(d)
	if err != nil {
		a.record(ctx, req, d, err)
		return nil, err
	}

	a.record(ctx, req, d, nil)
	return &Assessment{
		Decision:        d,
		Explanation:     exp,
		Language:        lang,
		Narrative:       exp.Narrative[lang],
		Recommendations: exp.Recommendations[lang],
	}, nil
}

// Decide validates the request, looks up the nearest record and evaluates it.
func (a *Analyzer) Decide(ctx context.Context, req Request) (*decision.DecisionResult, error) {
	if err := ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	idx, err := a.geo.Index(ctx)
	if err != nil {
		return nil, err
	}

	var matched *geo.GeoRecord
	if rec, ok := idx.Nearest(req.Latitude, req.Longitude); ok {
		matched = &rec
	}

	d, err := a.engine.Decide(matched, req.CropType, decision.Inputs{
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		AreaHectares: req.AreaHectares,
		NDVIBefore:   req.NDVIBefore,
		NDVICurrent:  req.NDVICurrent,
		RainfallMM:   req.RainfallMM,
		TemperatureC: req.TemperatureC,
	})
	if err != nil {
		a.logger.Warn("decision failed", map[string]interface{}{
			"latitude":  req.Latitude,
			"longitude": req.Longitude,
			"cropType":  req.CropType,
			"errorCode": string(apperrors.CodeOf(err)),
		})
		return nil, err
	}

	metrics.Decisions.WithLabelValues(d.CropType, strconv.FormatBool(d.Eligible)).Inc()
	a.logger.Info("decision computed", map[string]interface{}{
		"cropType":      d.CropType,
		"predictedLoss": d.PredictedLoss,
		"threshold":     d.Threshold,
		"eligible":      d.Eligible,
		"district":      d.District,
	})
	return d, nil
}

// Explain is only called with a successful decision.
func (a *Analyzer) Explain(d *decision.DecisionResult) (*explain.Explanation, error) {
	return a.generator.Explain(d)
}

func (a *Analyzer) record(ctx context.Context, req Request, d *decision.DecisionResult, err error) {
	entry := audit.Entry{
		Kind:      audit.KindAssessment,
		Language:  string(req.Language),
		CropType:  req.CropType,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Success:   err == nil,
		Timestamp: time.Now().UTC(),
	}
	if d != nil {
		entry.Eligible = &d.Eligible
		entry.PredictedLoss = d.PredictedLoss
		entry.Threshold = d.Threshold
		entry.District = d.District
	}
	if err != nil {
		entry.ErrorCode = string(apperrors.Normalize(err).Code)
	}
	if recErr := a.audit.Record(ctx, entry); recErr != nil {
		a.logger.Warn("audit record failed", map[string]interface{}{
			"error": recErr.Error(),
		})
	}
}

// ValidateCoordinates rejects latitudes outside ±90 and longitudes outside ±180.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperrors.NewInputInvalidError("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return apperrors.NewInputInvalidError("longitude must be between -180 and 180")
	}
	return nil
}

func resolveLanguage(lang models.Language) (models.Language, error) {
	if lang == "" {
		return models.LanguageEnglish, nil
	}
	if !lang.Valid() {
		return "", apperrors.NewUnsupportedLanguageError(string(lang))
	}
	return lang, nil
}
