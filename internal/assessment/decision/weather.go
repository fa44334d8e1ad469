package decision

import "math/rand"

// WeatherFactors are daily averages for the assessed location.
type WeatherFactors struct {
	RainfallMM   float64 `json:"rainfall"`
	TemperatureC float64 `json:"temperature"`
	HumidityPct  float64 `json:"humidity"`
	WindSpeedKMH float64 `json:"windSpeed"`
}

// SimulateWeather derives stable weather factors from the coordinates so the
// same location always reports the same conditions.
func SimulateWeather(lat, lon float64) WeatherFactors {
	rng := rand.New(rand.NewSource(int64((lat + lon) * 1000)))
	uniform := func(lo, hi float64) float64 {
		return lo + rng.Float64()*(hi-lo)
	}

	return WeatherFactors{
		RainfallMM:   uniform(0, 25),
		TemperatureC: uniform(25, 40),
		HumidityPct:  uniform(40, 80),
		WindSpeedKMH: uniform(8, 18),
	}
}
