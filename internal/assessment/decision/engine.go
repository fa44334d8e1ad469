// Package decision computes PMFBY eligibility from a matched geo record.
package decision

import (
	"math"
	"strings"

	"crop-assist/internal/assessment/geo"
	apperrors "crop-assist/internal/common/errors"
)

const (
	DefaultDrynessFloorMM = 750.0
	DefaultThreshold      = 33.0

	ndviDropLossFactor = 50.0
	drynessPenalty     = 10.0
	baseConfidence     = 75.0
	healthConfidence   = 20.0
	maxConfidence      = 95.0
	defaultCropValue   = 40000.0
)

const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// defaultThresholdKey holds the fallback for crops missing from the table.
const defaultThresholdKey = "default"

var defaultThresholds = map[string]float64{
	defaultThresholdKey: DefaultThreshold,
	"rice":              33,
	"wheat":             33,
	"cotton":            35,
	"sugarcane":         40,
	"maize":             30,
	"soybean":           33,
	"groundnut":         33,
	"pulses":            30,
}

// cropValues is the market value per hectare in INR.
var cropValues = map[string]float64{
	"rice":      40000,
	"wheat":     35000,
	"cotton":    60000,
	"sugarcane": 80000,
	"maize":     30000,
}

// Threshold returns the PMFBY loss threshold for a crop, 33 for unknown crops.
func Threshold(cropType string) float64 {
	return lookupThreshold(defaultThresholds, cropType)
}

func lookupThreshold(table map[string]float64, cropType string) float64 {
	if t, ok := table[normalizeCrop(cropType)]; ok {
		return t
	}
	if t, ok := table[defaultThresholdKey]; ok {
		return t
	}
	return DefaultThreshold
}

func normalizeCrop(cropType string) string {
	return strings.ToLower(strings.TrimSpace(cropType))
}

type Config struct {
	DrynessFloorMM float64
	// Thresholds overrides entries of the built-in table.
	Thresholds map[string]float64
}

// Inputs are the per-request values. Nil overrides fall back to the matched
// record (NDVI, rainfall) or to simulated weather (temperature).
type Inputs struct {
	Latitude     float64
	Longitude    float64
	AreaHectares float64

	NDVIBefore   *float64
	NDVICurrent  *float64
	RainfallMM   *float64
	TemperatureC *float64
}

// DecisionResult is immutable once returned.
type DecisionResult struct {
	CropType        string         `json:"cropType"`
	PredictedLoss   float64        `json:"predictedLoss"`
	Eligible        bool           `json:"eligible"`
	Threshold       float64        `json:"threshold"`
	Confidence      float64        `json:"confidence"`
	NDVIBefore      float64        `json:"ndviBefore"`
	NDVICurrent     float64        `json:"ndviCurrent"`
	NDVIDrop        float64        `json:"ndviDrop"`
	PrecipitationMM float64        `json:"precipitation"`
	TemperatureC    float64        `json:"temperature"`
	HealthIndex     float64        `json:"healthIndex"`
	BaselineLoss    float64        `json:"baselineLoss"`
	Weather         WeatherFactors `json:"weatherFactors"`

	District         string  `json:"district,omitempty"`
	MatchedLatitude  float64 `json:"matchedLatitude"`
	MatchedLongitude float64 `json:"matchedLongitude"`

	RiskLevel      string  `json:"riskLevel"`
	DamageCause    string  `json:"damageCause"`
	AreaHectares   float64 `json:"areaHectares"`
	AffectedArea   float64 `json:"affectedArea"`
	EstimatedValue float64 `json:"estimatedValue"`
}

// Engine is stateless apart from its noise source and safe for concurrent use.
type Engine struct {
	drynessFloor float64
	thresholds   map[string]float64
	noise        NoiseSource
}

func NewEngine(cfg Config, noise NoiseSource) *Engine {
	if noise == nil {
		noise = ZeroNoise{}
	}
	floor := cfg.DrynessFloorMM
	if floor <= 0 {
		floor = DefaultDrynessFloorMM
	}

	thresholds := make(map[string]float64, len(defaultThresholds)+len(cfg.Thresholds))
	for k, v := range defaultThresholds {
		thresholds[k] = v
	}
	for k, v := range cfg.Thresholds {
		thresholds[normalizeCrop(k)] = v
	}

	return &Engine{drynessFloor: floor, thresholds: thresholds, noise: noise}
}

// Threshold returns the configured threshold for a crop. Unknown crops use the
// "default" entry.
func (e *Engine) Threshold(cropType string) float64 {
	return lookupThreshold(e.thresholds, cropType)
}

// Decide evaluates eligibility for the matched record. A nil record means the
// lookup found nothing and yields DATA_UNAVAILABLE.
func (e *Engine) Decide(record *geo.GeoRecord, cropType string, in Inputs) (*DecisionResult, error) {
	if record == nil {
		return nil, apperrors.NewDataUnavailableError("no geo record matched the location", nil)
	}
	crop := normalizeCrop(cropType)
	if crop == "" {
		return nil, apperrors.NewInputInvalidError("cropType is required")
	}
	if in.AreaHectares < 0 {
		return nil, apperrors.NewInputInvalidError("areaHectares must not be negative")
	}

	before := e.reading(in.NDVIBefore, record.NDVIBefore)
	current := e.reading(in.NDVICurrent, record.NDVIAfter)
	drop := math.Max(0, before-current)

	precipitation := record.PrecipitationMM
	if in.RainfallMM != nil {
		precipitation = *in.RainfallMM
	}

	penalty := 0.0
	if precipitation < e.drynessFloor {
		penalty = drynessPenalty
	}
	loss := clamp(record.LossPercentage+drop*ndviDropLossFactor+penalty, 0, 100)
	threshold := e.Threshold(crop)

	weather := SimulateWeather(in.Latitude, in.Longitude)
	temperature := weather.TemperatureC
	if in.TemperatureC != nil {
		temperature = *in.TemperatureC
	}

	affected := in.AreaHectares * loss / 100

	return &DecisionResult{
		CropType:         crop,
		PredictedLoss:    loss,
		Eligible:         loss >= threshold,
		Threshold:        threshold,
		Confidence:       clamp(baseConfidence+record.HealthIndex*healthConfidence, 0, maxConfidence),
		NDVIBefore:       before,
		NDVICurrent:      current,
		NDVIDrop:         drop,
		PrecipitationMM:  precipitation,
		TemperatureC:     temperature,
		HealthIndex:      record.HealthIndex,
		BaselineLoss:     record.LossPercentage,
		Weather:          weather,
		District:         record.District,
		MatchedLatitude:  record.Latitude,
		MatchedLongitude: record.Longitude,
		RiskLevel:        RiskLevel(loss),
		DamageCause:      DamageCause(loss),
		AreaHectares:     in.AreaHectares,
		AffectedArea:     affected,
		EstimatedValue:   affected * CropValue(crop),
	}, nil
}

// reading uses an explicit measurement as is and perturbs a derived one.
func (e *Engine) reading(override *float64, derived float64) float64 {
	if override != nil {
		return clamp(*override, 0, 1)
	}
	return clamp(derived+e.noise.Next(), 0, 1)
}

func RiskLevel(loss float64) string {
	switch {
	case loss > 30:
		return RiskHigh
	case loss > 15:
		return RiskMedium
	default:
		return RiskLow
	}
}

func DamageCause(loss float64) string {
	switch {
	case loss > 40:
		return "Severe Stress"
	case loss > 25:
		return "Moderate Stress"
	case loss > 10:
		return "Minor Stress"
	default:
		return "Healthy"
	}
}

// CropValue returns the per-hectare value in INR.
func CropValue(cropType string) float64 {
	if v, ok := cropValues[normalizeCrop(cropType)]; ok {
		return v
	}
	return defaultCropValue
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
