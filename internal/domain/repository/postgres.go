package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"waste_service/internal/domain/model"
)

// PostgresWardSource reads ward rows from the ward_records table.
type PostgresWardSource struct {
	db *sqlx.DB
}

func NewPostgresWardSource(ctx context.Context, connStr string) (*PostgresWardSource, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresWardSourceFromDB(db), nil
}

func NewPostgresWardSourceFromDB(db *sqlx.DB) *PostgresWardSource {
	return &PostgresWardSource{db: db}
}

func (r *PostgresWardSource) Location() string { return "postgres table ward_records" }

func (r *PostgresWardSource) Check(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}

func (r *PostgresWardSource) LoadWardRecords(ctx context.Context) ([]model.WardRecord, error) {
	const query = `
		SELECT
			COALESCE(TRIM(zone_name), '') AS zone_name,
			total_households,
			covered_households,
			source_segregated
		FROM ward_records
		ORDER BY id`

	var records []model.WardRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to query ward records: %w", err)
	}
	return records, nil
}

// Close releases the connection pool.
func (r *PostgresWardSource) Close() error { return r.db.Close() }
