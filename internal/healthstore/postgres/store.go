package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// routeBatchSize is how many route points are handed to the stream callback
// per delivery.
const routeBatchSize = 500

func (db *DB) Available(ctx context.Context) (bool, error) {
	if err := db.Pool.Ping(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

func (db *DB) AuthorizationStatus(ctx context.Context, typeID string) (healthstore.AuthorizationState, error) {
	var state string
	err := db.Pool.QueryRow(ctx,
		`SELECT state FROM authorizations WHERE type_id = $1`, typeID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return healthstore.NotDetermined, nil
	}
	if err != nil {
		return "", fmt.Errorf("querying authorization: %w", err)
	}
	return healthstore.AuthorizationState(state), nil
}

func (db *DB) RequestAuthorization(ctx context.Context, typeIDs []string) (bool, error) {
	if !db.GrantOnAsk {
		return false, nil
	}
	if err := db.SetAuthorization(ctx, typeIDs, healthstore.Authorized); err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) LatestSample(ctx context.Context, typeID string) (*healthstore.SampleRecord, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT type_id, start_time, end_time, value, units, source, metadata
		 FROM samples
		 WHERE type_id = $1 AND correlation_id IS NULL
		 ORDER BY start_time DESC
		 LIMIT 1`, typeID)

	s, err := scanSample(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest sample: %w", err)
	}
	return s, nil
}

func (db *DB) Samples(ctx context.Context, typeID string, start, end time.Time) ([]healthstore.SampleRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT type_id, start_time, end_time, value, units, source, metadata
		 FROM samples
		 WHERE type_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time ASC`,
		typeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var result []healthstore.SampleRecord
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (db *DB) LatestCorrelation(ctx context.Context, typeID string) (*healthstore.CorrelationRecord, error) {
	var (
		id    uuid.UUID
		c     healthstore.CorrelationRecord
		start time.Time
		end   time.Time
	)
	err := db.Pool.QueryRow(ctx,
		`SELECT id, type_id, start_time, end_time
		 FROM correlations
		 WHERE type_id = $1
		 ORDER BY start_time DESC
		 LIMIT 1`, typeID).Scan(&id, &c.TypeID, &start, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest correlation: %w", err)
	}
	c.Start, c.End = start, end

	rows, err := db.Pool.Query(ctx,
		`SELECT type_id, start_time, end_time, value, units, source, metadata
		 FROM samples
		 WHERE correlation_id = $1
		 ORDER BY type_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying correlation components: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning correlation component: %w", err)
		}
		c.Components = append(c.Components, *s)
	}
	return &c, rows.Err()
}

// CollectStatistics reads the covering range and reduces through the shared
// bucket reducer, so bucket semantics cannot diverge from other backends.
func (db *DB) CollectStatistics(ctx context.Context, typeID, unit string, buckets []healthstore.Interval, op healthstore.StatisticOp) ([]healthstore.Statistic, error) {
	if len(buckets) == 0 {
		return nil, nil
	}
	samples, err := db.Samples(ctx, typeID, buckets[0].Start, buckets[len(buckets)-1].End)
	if err != nil {
		return nil, err
	}
	return healthstore.ReduceIntoBuckets(samples, unit, buckets, op)
}

func (db *DB) WorkoutSessions(ctx context.Context, start, end time.Time) ([]healthstore.WorkoutSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, activity_code, start_time, end_time, duration_sec, calories, distance, source_name, source_bundle_id, metadata
		 FROM workouts
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY start_time ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []healthstore.WorkoutSession
	for rows.Next() {
		var (
			w    healthstore.WorkoutSession
			meta []byte
		)
		if err := rows.Scan(&w.ID, &w.ActivityCode, &w.Start, &w.End, &w.DurationSec,
			&w.Calories, &w.Distance, &w.SourceName, &w.SourceBundleID, &meta); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &w.Metadata); err != nil {
				return nil, fmt.Errorf("decoding workout metadata: %w", err)
			}
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (db *DB) RouteSegments(ctx context.Context, workoutID uuid.UUID) ([]healthstore.RouteSegment, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, workout_id, start_time, end_time
		 FROM route_segments
		 WHERE workout_id = $1
		 ORDER BY start_time ASC`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying route segments: %w", err)
	}
	defer rows.Close()

	var result []healthstore.RouteSegment
	for rows.Next() {
		var seg healthstore.RouteSegment
		if err := rows.Scan(&seg.ID, &seg.WorkoutID, &seg.Start, &seg.End); err != nil {
			return nil, fmt.Errorf("scanning route segment: %w", err)
		}
		result = append(result, seg)
	}
	return result, rows.Err()
}

func (db *DB) StreamRoutePoints(ctx context.Context, segmentID uuid.UUID, deliver func(batch []healthstore.RoutePoint)) error {
	rows, err := db.Pool.Query(ctx,
		`SELECT time, latitude, longitude, altitude
		 FROM route_points
		 WHERE segment_id = $1
		 ORDER BY time ASC`, segmentID)
	if err != nil {
		return fmt.Errorf("querying route points: %w", err)
	}
	defer rows.Close()

	batch := make([]healthstore.RoutePoint, 0, routeBatchSize)
	for rows.Next() {
		var p healthstore.RoutePoint
		if err := rows.Scan(&p.Time, &p.Latitude, &p.Longitude, &p.Altitude); err != nil {
			return fmt.Errorf("scanning route point: %w", err)
		}
		batch = append(batch, p)
		if len(batch) == routeBatchSize {
			deliver(batch)
			batch = make([]healthstore.RoutePoint, 0, routeBatchSize)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		deliver(batch)
	}
	return nil
}

// OpenSettings always fails: a database deployment has no permission
// settings surface to navigate to.
func (db *DB) OpenSettings(ctx context.Context) error {
	return healthstore.ErrSettingsUnavailable
}

// scanSample reads one sample row. Metadata round-trips through jsonb.
func scanSample(row pgx.Row) (*healthstore.SampleRecord, error) {
	var (
		s    healthstore.SampleRecord
		meta []byte
	)
	if err := row.Scan(&s.TypeID, &s.Start, &s.End, &s.Value, &s.Unit, &s.Source, &meta); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Metadata); err != nil {
			return nil, fmt.Errorf("decoding sample metadata: %w", err)
		}
	}
	return &s, nil
}

var _ healthstore.Store = (*DB)(nil)
