package decision

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-assist/internal/assessment/geo"
	apperrors "crop-assist/internal/common/errors"
)

func ptr(v float64) *float64 { return &v }

func baselineRecord() *geo.GeoRecord {
	return &geo.GeoRecord{
		Latitude:        17.38,
		Longitude:       78.48,
		District:        "Hyderabad",
		NDVIBefore:      0.7,
		NDVIAfter:       0.6,
		PrecipitationMM: 900,
		LossPercentage:  20,
		HealthIndex:     0.5,
	}
}

// ==========================
// Decide
// ==========================

func TestEngine_Decide_DrySeasonCotton(t *testing.T) {
	engine := NewEngine(Config{}, ZeroNoise{})

	got, err := engine.Decide(baselineRecord(), "cotton", Inputs{
		Latitude:    17.38,
		Longitude:   78.48,
		NDVIBefore:  ptr(0.8),
		NDVICurrent: ptr(0.3),
		RainfallMM:  ptr(600),
	})
	require.NoError(t, err)

	assert.InDelta(t, 55.0, got.PredictedLoss, 1e-9)
	assert.Equal(t, 35.0, got.Threshold)
	assert.True(t, got.Eligible)
	assert.InDelta(t, 0.5, got.NDVIDrop, 1e-9)
	assert.Equal(t, 600.0, got.PrecipitationMM)
	assert.Equal(t, 85.0, got.Confidence)
	assert.Equal(t, RiskHigh, got.RiskLevel)
	assert.Equal(t, "Severe Stress", got.DamageCause)
	assert.Equal(t, "Hyderabad", got.District)
}

func TestEngine_Decide(t *testing.T) {
	tests := []struct {
		name         string
		record       *geo.GeoRecord
		crop         string
		inputs       Inputs
		wantLoss     float64
		wantEligible bool
		wantRisk     string
	}{
		{
			name:         "record values without penalty",
			record:       baselineRecord(),
			crop:         "rice",
			wantLoss:     25,
			wantEligible: false,
			wantRisk:     RiskMedium,
		},
		{
			name:         "growth is not a loss",
			record:       baselineRecord(),
			crop:         "rice",
			inputs:       Inputs{NDVIBefore: ptr(0.3), NDVICurrent: ptr(0.8)},
			wantLoss:     20,
			wantEligible: false,
			wantRisk:     RiskMedium,
		},
		{
			name:         "exactly at threshold is eligible",
			record:       &geo.GeoRecord{NDVIBefore: 0.5, NDVIAfter: 0.5, PrecipitationMM: 1000, LossPercentage: 30},
			crop:         "maize",
			wantLoss:     30,
			wantEligible: true,
			wantRisk:     RiskMedium,
		},
		{
			name:         "loss clamped to 100",
			record:       &geo.GeoRecord{NDVIBefore: 1, NDVIAfter: 0, PrecipitationMM: 10, LossPercentage: 80},
			crop:         "sugarcane",
			wantLoss:     100,
			wantEligible: true,
			wantRisk:     RiskHigh,
		},
		{
			name:         "unknown crop uses default threshold",
			record:       &geo.GeoRecord{NDVIBefore: 0.6, NDVIAfter: 0.6, PrecipitationMM: 800, LossPercentage: 33},
			crop:         "Millet",
			wantLoss:     33,
			wantEligible: true,
			wantRisk:     RiskHigh,
		},
		{
			name:         "healthy field",
			record:       &geo.GeoRecord{NDVIBefore: 0.6, NDVIAfter: 0.6, PrecipitationMM: 800, LossPercentage: 4},
			crop:         "wheat",
			wantLoss:     4,
			wantEligible: false,
			wantRisk:     RiskLow,
		},
	}

	engine := NewEngine(Config{}, ZeroNoise{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Decide(tt.record, tt.crop, tt.inputs)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantLoss, got.PredictedLoss, 1e-9)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			assert.Equal(t, got.PredictedLoss >= got.Threshold, got.Eligible)
			assert.Equal(t, tt.wantRisk, got.RiskLevel)
			assert.GreaterOrEqual(t, got.PredictedLoss, 0.0)
			assert.LessOrEqual(t, got.PredictedLoss, 100.0)
		})
	}
}

func TestEngine_Decide_Errors(t *testing.T) {
	engine := NewEngine(Config{}, ZeroNoise{})

	_, err := engine.Decide(nil, "rice", Inputs{})
	assert.Equal(t, apperrors.ErrCodeDataUnavailable, apperrors.CodeOf(err))

	_, err = engine.Decide(baselineRecord(), " ", Inputs{})
	assert.Equal(t, apperrors.ErrCodeInputInvalid, apperrors.CodeOf(err))

	_, err = engine.Decide(baselineRecord(), "rice", Inputs{AreaHectares: -1})
	assert.Equal(t, apperrors.ErrCodeInputInvalid, apperrors.CodeOf(err))
}

func TestEngine_Decide_AreaAndValue(t *testing.T) {
	engine := NewEngine(Config{}, ZeroNoise{})

	got, err := engine.Decide(baselineRecord(), "cotton", Inputs{
		AreaHectares: 2,
		NDVIBefore:   ptr(0.8),
		NDVICurrent:  ptr(0.3),
		RainfallMM:   ptr(600),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.1, got.AffectedArea, 1e-9)
	assert.InDelta(t, 66000, got.EstimatedValue, 1e-6)
}

func TestEngine_Decide_ConfidenceCapped(t *testing.T) {
	engine := NewEngine(Config{}, ZeroNoise{})
	rec := baselineRecord()
	rec.HealthIndex = 2

	got, err := engine.Decide(rec, "rice", Inputs{})
	require.NoError(t, err)
	assert.Equal(t, 95.0, got.Confidence)
}

func TestEngine_ThresholdOverrides(t *testing.T) {
	engine := NewEngine(Config{Thresholds: map[string]float64{"Rice": 25, "millet": 28}}, nil)

	assert.Equal(t, 25.0, engine.Threshold("rice"))
	assert.Equal(t, 28.0, engine.Threshold("millet"))
	assert.Equal(t, 35.0, engine.Threshold("cotton"))
	assert.Equal(t, 33.0, Threshold("rice"), "package table is unchanged")
	assert.Equal(t, DefaultThreshold, engine.Threshold("barley"))
}

func TestEngine_ThresholdDefaultEntry(t *testing.T) {
	engine := NewEngine(Config{Thresholds: map[string]float64{"Default": 45}}, ZeroNoise{})

	assert.Equal(t, 45.0, engine.Threshold("barley"))
	assert.Equal(t, 45.0, engine.Threshold(""))
	assert.Equal(t, 33.0, engine.Threshold("rice"))
	assert.Equal(t, DefaultThreshold, Threshold("barley"), "package table is unchanged")

	record := &geo.GeoRecord{NDVIBefore: 0.6, NDVIAfter: 0.6, PrecipitationMM: 900, LossPercentage: 40, HealthIndex: 0.5}
	d, err := engine.Decide(record, "barley", Inputs{})
	require.NoError(t, err)
	assert.Equal(t, 45.0, d.Threshold)
	assert.False(t, d.Eligible)
}

func TestThreshold_Table(t *testing.T) {
	want := map[string]float64{
		"rice": 33, "wheat": 33, "cotton": 35, "sugarcane": 40, "maize": 30,
		"soybean": 33, "groundnut": 33, "pulses": 30, "barley": 33, " COTTON ": 35,
	}
	for crop, threshold := range want {
		assert.Equal(t, threshold, Threshold(crop), crop)
	}
}

func TestDamageCauseAndRisk(t *testing.T) {
	tests := []struct {
		loss  float64
		cause string
		risk  string
	}{
		{0, "Healthy", RiskLow},
		{10, "Healthy", RiskLow},
		{10.5, "Minor Stress", RiskLow},
		{15.5, "Minor Stress", RiskMedium},
		{25.5, "Moderate Stress", RiskMedium},
		{30.5, "Moderate Stress", RiskHigh},
		{40.5, "Severe Stress", RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.cause, DamageCause(tt.loss), "loss %.1f", tt.loss)
		assert.Equal(t, tt.risk, RiskLevel(tt.loss), "loss %.1f", tt.loss)
	}
}

// ==========================
// Noise
// ==========================

func TestSeededNoise(t *testing.T) {
	a := NewSeededNoise(42, DefaultNoiseAmplitude)
	b := NewSeededNoise(42, DefaultNoiseAmplitude)

	for i := 0; i < 100; i++ {
		va, vb := a.Next(), b.Next()
		assert.Equal(t, va, vb)
		assert.LessOrEqual(t, math.Abs(va), DefaultNoiseAmplitude)
	}
}

func TestEngine_NoiseKeepsReadingsInRange(t *testing.T) {
	engine := NewEngine(Config{}, NewSeededNoise(7, 0.5))
	rec := &geo.GeoRecord{NDVIBefore: 0.98, NDVIAfter: 0.02, PrecipitationMM: 800, LossPercentage: 10}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := engine.Decide(rec, "rice", Inputs{})
			if assert.NoError(t, err) {
				assert.GreaterOrEqual(t, got.NDVIBefore, 0.0)
				assert.LessOrEqual(t, got.NDVIBefore, 1.0)
				assert.GreaterOrEqual(t, got.NDVICurrent, 0.0)
				assert.LessOrEqual(t, got.NDVICurrent, 1.0)
			}
		}()
	}
	wg.Wait()
}

// ==========================
// Weather
// ==========================

func TestSimulateWeather(t *testing.T) {
	a := SimulateWeather(17.38, 78.48)
	b := SimulateWeather(17.38, 78.48)
	assert.Equal(t, a, b)

	for _, loc := range [][2]float64{{17.38, 78.48}, {26.85, 80.95}, {0, 0}, {-33.9, 18.4}} {
		w := SimulateWeather(loc[0], loc[1])
		assert.True(t, w.RainfallMM >= 0 && w.RainfallMM <= 25, "rainfall %v", w.RainfallMM)
		assert.True(t, w.TemperatureC >= 25 && w.TemperatureC <= 40, "temperature %v", w.TemperatureC)
		assert.True(t, w.HumidityPct >= 40 && w.HumidityPct <= 80, "humidity %v", w.HumidityPct)
		assert.True(t, w.WindSpeedKMH >= 8 && w.WindSpeedKMH <= 18, "wind %v", w.WindSpeedKMH)
	}
}
