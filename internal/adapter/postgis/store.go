// Package postgis stores fire detections in a PostGIS table, skipping rows
// already recorded for the same point and scan time.
package postgis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

// ErrQueryFailed wraps database failures surfaced by the store.
var ErrQueryFailed = errors.New("detection store: query failed")

// QueryInsertDetection inserts a detection unless one with the same geometry
// and file time exists. It returns no row for duplicates.
const QueryInsertDetection = `
INSERT INTO goes16.goes (temp_kelvin, area_m2, power_mw, file_datetime, geom, dt_obtencao, source_file)
SELECT $1, $2, $3, $4, ST_GeomFromEWKT($5), $6, $7
WHERE NOT EXISTS (
    SELECT 1 FROM goes16.goes
    WHERE geom = ST_GeomFromEWKT($5) AND file_datetime = $4
)
RETURNING id
`

// Store writes detections to PostGIS.
// It implements pipeline.Loader.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store on an open connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgis" }

// LoadBatch inserts detections in a single transaction. Rows matching an
// existing (geom, file_datetime) pair are skipped and counted as duplicates.
func (s *Store) LoadBatch(ctx context.Context, detections []domain.Detection) (domain.LoadStats, error) {
	var stats domain.LoadStats
	if len(detections) == 0 {
		return stats, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("%w: begin: %v", ErrQueryFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, d := range detections {
		var geom any
		if d.Geom != nil {
			geom = *d.Geom
		}

		var id int64
		err := tx.QueryRowxContext(ctx, QueryInsertDetection,
			d.TempKelvin, d.AreaM2, d.PowerMW, d.FileDatetime, geom, d.ObtainedAt, d.SourceFile,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			stats.Duplicates++
			s.logger.Debug("duplicate detection skipped", "file_datetime", d.FileDatetime, "geom", geom)
		case err != nil:
			return domain.LoadStats{}, fmt.Errorf("%w: insert detection from %s: %v", ErrQueryFailed, d.SourceFile, err)
		default:
			stats.Written++
			s.logger.Debug("detection inserted", "id", id, "file_datetime", d.FileDatetime)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.LoadStats{}, fmt.Errorf("%w: commit: %v", ErrQueryFailed, err)
	}
	return stats, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
