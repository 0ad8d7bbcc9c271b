// Package postgres persists converted activities as relational rows. The
// rows are a secondary index for query and reporting use; retrieval reads
// the object store, never these tables.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/garmcloud/internal/domain"
)

// Repository provides Postgres-backed persistence for activities and records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save writes one activity summary row and one row per record inside a
// single transaction. Re-saving the same uuid replaces the previous rows:
// the summary is upserted and the records are deleted and re-inserted, so
// a replay can never leave duplicates behind.
func (r *Repository) Save(ctx context.Context, activity *domain.Activity) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsertActivity = `INSERT INTO activities (uuid, converter, progress, avg_speed_in_kmh, avg_heart_rate, total_time_in_sec, total_dist_in_km, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
        ON CONFLICT (uuid) DO UPDATE SET
            converter = EXCLUDED.converter,
            progress = EXCLUDED.progress,
            avg_speed_in_kmh = EXCLUDED.avg_speed_in_kmh,
            avg_heart_rate = EXCLUDED.avg_heart_rate,
            total_time_in_sec = EXCLUDED.total_time_in_sec,
            total_dist_in_km = EXCLUDED.total_dist_in_km,
            updated_at = NOW()`

	_, err = tx.Exec(ctx, upsertActivity,
		activity.UUID,
		activity.Converter,
		"100%",
		activity.AvgSpeedKmh,
		activity.AvgHeartRate,
		activity.TotalTimeSec,
		activity.TotalDistKm,
	)
	if err != nil {
		return fmt.Errorf("upsert activity %s: %w", activity.UUID, err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM records WHERE activity_uuid = $1`, activity.UUID); err != nil {
		return fmt.Errorf("clear records for %s: %w", activity.UUID, err)
	}

	const insertRecord = `INSERT INTO records (activity_uuid, seq, timestamp, lat, lon, distance, ele, speed, heart_rate)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	for i, rec := range activity.Records {
		if _, err = tx.Exec(ctx, insertRecord,
			rec.ActivityUUID,
			i,
			rec.Timestamp,
			rec.Lat,
			rec.Lon,
			rec.Distance,
			rec.Elevation,
			rec.Speed,
			rec.HeartRate,
		); err != nil {
			return fmt.Errorf("insert record %d for %s: %w", i, activity.UUID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordCount reports the number of record rows stored for a uuid.
func (r *Repository) RecordCount(ctx context.Context, uuid string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM records WHERE activity_uuid = $1`, uuid).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetSummary loads the stored activity summary row, without records.
// Returns nil when no row exists for the uuid.
func (r *Repository) GetSummary(ctx context.Context, uuid string) (*domain.Activity, error) {
	const query = `SELECT uuid, converter, avg_speed_in_kmh, avg_heart_rate, total_time_in_sec, total_dist_in_km
        FROM activities WHERE uuid = $1`

	var activity domain.Activity
	err := r.pool.QueryRow(ctx, query, uuid).Scan(
		&activity.UUID,
		&activity.Converter,
		&activity.AvgSpeedKmh,
		&activity.AvgHeartRate,
		&activity.TotalTimeSec,
		&activity.TotalDistKm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}
