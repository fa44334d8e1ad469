package geo

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	apperrors "crop-assist/internal/common/errors"
	"crop-assist/internal/common/logger"
)

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresLoader reads the dataset from a table with the same columns as
// the CSV export, in snake case.
type PostgresLoader struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresLoader(db *sql.DB, table string, log logger.Logger) (*PostgresLoader, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid geo table name %q", table)
	}
	return &PostgresLoader{db: db, table: table, logger: log}, nil
}

func (l *PostgresLoader) query() string {
	return fmt.Sprintf(`SELECT latitude, longitude, COALESCE(district, ''),
		ndvi_before, ndvi_after, ndvi_change, ndvi_percent_change,
		precipitation_mm, loss_percentage, health_index,
		vegetation_health, season
		FROM %s ORDER BY id`, l.table)
}

// Load reads every row. Rows holding the missing-value placeholder, NaN or an
// infinity are skipped.
func (l *PostgresLoader) Load(ctx context.Context) ([]GeoRecord, error) {
	rows, err := l.db.QueryContext(ctx, l.query())
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("", fmt.Errorf("query %s: %w", l.table, err))
	}
	defer rows.Close()

	var records []GeoRecord
	skipped := 0
	for rows.Next() {
		var r GeoRecord
		if err := rows.Scan(
			&r.Latitude, &r.Longitude, &r.District,
			&r.NDVIBefore, &r.NDVIAfter, &r.NDVIChange, &r.NDVIPercentChange,
			&r.PrecipitationMM, &r.LossPercentage, &r.HealthIndex,
			&r.VegetationHealth, &r.Season,
		); err != nil {
			return nil, apperrors.NewDataUnavailableError("", fmt.Errorf("scan %s: %w", l.table, err))
		}
		if !recordUsable(r) {
			skipped++
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("", err)
	}

	if skipped > 0 {
		l.logger.Warn("skipped geo rows with missing or non-finite values", map[string]interface{}{
			"table":   l.table,
			"skipped": skipped,
		})
	}
	return records, nil
}

func recordUsable(r GeoRecord) bool {
	for _, v := range []float64{
		r.Latitude, r.Longitude, r.NDVIBefore, r.NDVIAfter, r.NDVIChange,
		r.NDVIPercentChange, r.PrecipitationMM, r.LossPercentage, r.HealthIndex,
	} {
		if !usable(v) {
			return false
		}
	}
	return true
}
