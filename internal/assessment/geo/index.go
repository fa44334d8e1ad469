// Package geo holds the in-memory geolocated crop history dataset and the
// nearest-record lookup used by the decision engine.
package geo

import "math"

const (
	DefaultScanLimit         = 50
	DefaultEarlyExitDistance = 0.1
)

// GeoRecord is one row of historical satellite and weather aggregates for a location.
type GeoRecord struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	District          string  `json:"district,omitempty"`
	NDVIBefore        float64 `json:"ndviBefore"`
	NDVIAfter         float64 `json:"ndviAfter"`
	NDVIChange        float64 `json:"ndviChange"`
	NDVIPercentChange float64 `json:"ndviPercentChange"`
	PrecipitationMM   float64 `json:"precipitationMm"`
	LossPercentage    float64 `json:"lossPercentage"`
	HealthIndex       float64 `json:"healthIndex"`
	VegetationHealth  string  `json:"vegetationHealth"`
	Season            string  `json:"season"`
}

// Index answers nearest-record queries over a fixed dataset. It never
// mutates its records after construction, so concurrent readers need no locking.
type Index struct {
	records   []GeoRecord
	scanLimit int
	earlyExit float64
}

// NewIndex copies records. A scanLimit of zero scans the whole dataset and a
// negative earlyExit disables the early exit.
func NewIndex(records []GeoRecord, scanLimit int, earlyExit float64) *Index {
	copied := make([]GeoRecord, len(records))
	copy(copied, records)
	return &Index{records: copied, scanLimit: scanLimit, earlyExit: earlyExit}
}

func (i *Index) Len() int {
	return len(i.records)
}

// Nearest returns the record with the smallest Manhattan distance among the
// first scanLimit records, stopping early on one closer than the early-exit
// distance. It reports false only when the dataset is empty.
func (i *Index) Nearest(lat, lon float64) (GeoRecord, bool) {
	if len(i.records) == 0 {
		return GeoRecord{}, false
	}

	limit := len(i.records)
	if i.scanLimit > 0 && i.scanLimit < limit {
		limit = i.scanLimit
	}

	best := 0
	bestDist := math.Inf(1)
	for idx := 0; idx < limit; idx++ {
		r := &i.records[idx]
		d := math.Abs(r.Latitude-lat) + math.Abs(r.Longitude-lon)
		if d < bestDist {
			best, bestDist = idx, d
		}
		if d < i.earlyExit {
			break
		}
	}
	return i.records[best], true
}
