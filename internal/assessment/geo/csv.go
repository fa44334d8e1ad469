package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
)

// missingValue marks an absent measurement in the exported dataset.
const missingValue = -9999

// usable rejects the missing-value placeholder and non-finite values.
func usable(v float64) bool {
	return v != missingValue && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Header is the fixed column order of the dataset. A trailing district
// column is accepted.
var Header = []string{
	"Agriculture_Health_Index_mean",
	"NDVI_after_mean",
	"NDVI_before_mean",
	"NDVI_change_mean",
	"NDVI_percent_change_mean",
	"precipitation_total_mm_mean",
	"latitude",
	"longitude",
	"loss_percentage",
	"vegetation_health",
	"season",
}

const districtColumn = "district"

// LoadStats counts the rows seen by LoadCSV.
type LoadStats struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// LoadCSV reads the whole dataset into memory. A header that does not match
// Header is DATA_UNAVAILABLE; malformed rows are skipped with a warning.
func LoadCSV(r io.Reader, log logger.Logger) ([]GeoRecord, LoadStats, error) {
	var stats LoadStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, stats, apperrors.NewDataUnavailableError("geo dataset is empty", err)
		}
		return nil, stats, apperrors.NewDataUnavailableError("", err)
	}
	withDistrict, err := checkHeader(header)
	if err != nil {
		return nil, stats, apperrors.NewDataUnavailableError("", err)
	}

	var records []GeoRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			stats.Skipped++
			log.Warn("skipping unreadable geo row", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}

		rec, err := parseRow(row, withDistrict)
		if err != nil {
			stats.Skipped++
			log.Warn("skipping malformed geo row", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, rec)
		stats.Accepted++
	}

	return records, stats, nil
}

func checkHeader(header []string) (bool, error) {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) != len(Header) && len(header) != len(Header)+1 {
		return false, fmt.Errorf("geo header has %d columns, want %d", len(header), len(Header))
	}
	for i, want := range Header {
		if strings.TrimSpace(header[i]) != want {
			return false, fmt.Errorf("geo header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	if len(header) == len(Header)+1 {
		if strings.TrimSpace(header[len(Header)]) != districtColumn {
			return false, fmt.Errorf("unexpected trailing geo column %q", header[len(Header)])
		}
		return true, nil
	}
	return false, nil
}

func parseRow(row []string, withDistrict bool) (GeoRecord, error) {
	want := len(Header)
	if withDistrict {
		want++
	}
	if len(row) != want {
		return GeoRecord{}, fmt.Errorf("row has %d columns, want %d", len(row), want)
	}

	var values [9]float64
	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return GeoRecord{}, fmt.Errorf("column %s: %w", Header[i], err)
		}
		if !usable(v) {
			return GeoRecord{}, fmt.Errorf("column %s holds unusable value %q", Header[i], strings.TrimSpace(row[i]))
		}
		values[i] = v
	}

	rec := GeoRecord{
		HealthIndex:       values[0],
		NDVIAfter:         values[1],
		NDVIBefore:        values[2],
		NDVIChange:        values[3],
		NDVIPercentChange: values[4],
		PrecipitationMM:   values[5],
		Latitude:          values[6],
		Longitude:         values[7],
		LossPercentage:    values[8],
		VegetationHealth:  strings.TrimSpace(row[9]),
		Season:            strings.TrimSpace(row[10]),
	}
	if withDistrict {
		rec.District = strings.TrimSpace(row[11])
	}

	if rec.Latitude < -90 || rec.Latitude > 90 || rec.Longitude < -180 || rec.Longitude > 180 {
		return GeoRecord{}, fmt.Errorf("coordinates out of range: %v,%v", rec.Latitude, rec.Longitude)
	}
	return rec, nil
}
