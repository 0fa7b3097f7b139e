package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

const routeBatchSize = 500

func ms(t time.Time) int64     { return t.UnixMilli() }
func fromMS(v int64) time.Time { return time.UnixMilli(v).UTC() }

func (d *DB) Available(ctx context.Context) (bool, error) {
	if err := d.db.PingContext(ctx); err != nil {
		return false, nil
	}
	return true, nil
}

func (d *DB) AuthorizationStatus(ctx context.Context, typeID string) (healthstore.AuthorizationState, error) {
	var state string
	err := d.db.QueryRowContext(ctx,
		`SELECT state FROM authorizations WHERE type_id = ?`, typeID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return healthstore.NotDetermined, nil
	}
	if err != nil {
		return "", fmt.Errorf("querying authorization: %w", err)
	}
	return healthstore.AuthorizationState(state), nil
}

func (d *DB) RequestAuthorization(ctx context.Context, typeIDs []string) (bool, error) {
	if !d.GrantOnAsk {
		return false, nil
	}
	if err := d.SetAuthorization(ctx, typeIDs, healthstore.Authorized); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) LatestSample(ctx context.Context, typeID string) (*healthstore.SampleRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT type_id, start_ms, end_ms, value, units, source, metadata
		 FROM samples
		 WHERE type_id = ? AND correlation_id IS NULL
		 ORDER BY start_ms DESC
		 LIMIT 1`, typeID)

	s, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest sample: %w", err)
	}
	return s, nil
}

func (d *DB) Samples(ctx context.Context, typeID string, start, end time.Time) ([]healthstore.SampleRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT type_id, start_ms, end_ms, value, units, source, metadata
		 FROM samples
		 WHERE type_id = ? AND start_ms >= ? AND start_ms < ?
		 ORDER BY start_ms ASC`,
		typeID, ms(start), ms(end))
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

func (d *DB) LatestCorrelation(ctx context.Context, typeID string) (*healthstore.CorrelationRecord, error) {
	var (
		id       string
		c        healthstore.CorrelationRecord
		startMS  int64
		endMS    int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT id, type_id, start_ms, end_ms
		 FROM correlations
		 WHERE type_id = ?
		 ORDER BY start_ms DESC
		 LIMIT 1`, typeID).Scan(&id, &c.TypeID, &startMS, &endMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest correlation: %w", err)
	}
	c.Start, c.End = fromMS(startMS), fromMS(endMS)

	rows, err := d.db.QueryContext(ctx,
		`SELECT type_id, start_ms, end_ms, value, units, source, metadata
		 FROM samples
		 WHERE correlation_id = ?
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

func (d *DB) CollectStatistics(ctx context.Context, typeID, unit string, buckets []healthstore.Interval, op healthstore.StatisticOp) ([]healthstore.Statistic, error) {
	if len(buckets) == 0 {
		return nil, nil
	}
	samples, err := d.Samples(ctx, typeID, buckets[0].Start, buckets[len(buckets)-1].End)
	if err != nil {
		return nil, err
	}
	return healthstore.ReduceIntoBuckets(samples, unit, buckets, op)
}

func (d *DB) WorkoutSessions(ctx context.Context, start, end time.Time) ([]healthstore.WorkoutSession, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, activity_code, start_ms, end_ms, duration_sec, calories, distance, source_name, source_bundle_id, metadata
		 FROM workouts
		 WHERE start_ms >= ? AND start_ms < ?
		 ORDER BY start_ms ASC`,
		ms(start), ms(end))
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []healthstore.WorkoutSession
	for rows.Next() {
		var (
			w       healthstore.WorkoutSession
			id      string
			startMS int64
			endMS   int64
			meta    sql.NullString
		)
		if err := rows.Scan(&id, &w.ActivityCode, &startMS, &endMS, &w.DurationSec,
			&w.Calories, &w.Distance, &w.SourceName, &w.SourceBundleID, &meta); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		if w.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing workout id: %w", err)
		}
		w.Start, w.End = fromMS(startMS), fromMS(endMS)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &w.Metadata); err != nil {
				return nil, fmt.Errorf("decoding workout metadata: %w", err)
			}
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (d *DB) RouteSegments(ctx context.Context, workoutID uuid.UUID) ([]healthstore.RouteSegment, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, workout_id, start_ms, end_ms
		 FROM route_segments
		 WHERE workout_id = ?
		 ORDER BY start_ms ASC`, workoutID.String())
	if err != nil {
		return nil, fmt.Errorf("querying route segments: %w", err)
	}
	defer rows.Close()

	var result []healthstore.RouteSegment
	for rows.Next() {
		var (
			seg     healthstore.RouteSegment
			id      string
			wid     string
			startMS int64
			endMS   int64
		)
		if err := rows.Scan(&id, &wid, &startMS, &endMS); err != nil {
			return nil, fmt.Errorf("scanning route segment: %w", err)
		}
		if seg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing segment id: %w", err)
		}
		if seg.WorkoutID, err = uuid.Parse(wid); err != nil {
			return nil, fmt.Errorf("parsing segment workout id: %w", err)
		}
		seg.Start, seg.End = fromMS(startMS), fromMS(endMS)
		result = append(result, seg)
	}
	return result, rows.Err()
}

func (d *DB) StreamRoutePoints(ctx context.Context, segmentID uuid.UUID, deliver func(batch []healthstore.RoutePoint)) error {
	rows, err := d.db.QueryContext(ctx,
		`SELECT time_ms, latitude, longitude, altitude
		 FROM route_points
		 WHERE segment_id = ?
		 ORDER BY time_ms ASC`, segmentID.String())
	if err != nil {
		return fmt.Errorf("querying route points: %w", err)
	}
	defer rows.Close()

	batch := make([]healthstore.RoutePoint, 0, routeBatchSize)
	for rows.Next() {
		var (
			p      healthstore.RoutePoint
			timeMS int64
		)
		if err := rows.Scan(&timeMS, &p.Latitude, &p.Longitude, &p.Altitude); err != nil {
			return fmt.Errorf("scanning route point: %w", err)
		}
		p.Time = fromMS(timeMS)
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

func (d *DB) OpenSettings(ctx context.Context) error {
	return healthstore.ErrSettingsUnavailable
}

func scanSample(row interface{ Scan(dest ...any) error }) (*healthstore.SampleRecord, error) {
	var (
		s       healthstore.SampleRecord
		startMS int64
		endMS   int64
		meta    sql.NullString
	)
	if err := row.Scan(&s.TypeID, &startMS, &endMS, &s.Value, &s.Unit, &s.Source, &meta); err != nil {
		return nil, err
	}
	s.Start, s.End = fromMS(startMS), fromMS(endMS)
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &s.Metadata); err != nil {
			return nil, fmt.Errorf("decoding sample metadata: %w", err)
		}
	}
	return &s, nil
}

var _ healthstore.Store = (*DB)(nil)
