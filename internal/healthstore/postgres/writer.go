package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

// InsertSamples batch-inserts sample rows. Returns the number actually
// inserted (skipped duplicates via ON CONFLICT DO NOTHING).
func (db *DB) InsertSamples(ctx context.Context, samples []healthstore.SampleRecord) (int64, error) {
	return db.insertSamples(ctx, samples, uuid.Nil)
}

func (db *DB) insertSamples(ctx context.Context, samples []healthstore.SampleRecord, correlationID uuid.UUID) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	query := `INSERT INTO samples (type_id, start_time, end_time, value, units, source, metadata, correlation_id)
VALUES `
	args := make([]any, 0, len(samples)*8)
	valueStrings := make([]string, 0, len(samples))

	for i, s := range samples {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))

		var meta []byte
		if len(s.Metadata) > 0 {
			var err error
			meta, err = json.Marshal(s.Metadata)
			if err != nil {
				return 0, fmt.Errorf("encoding sample metadata: %w", err)
			}
		}
		var corr any
		if correlationID != uuid.Nil {
			corr = correlationID
		}
		args = append(args, s.TypeID, s.Start, s.End, s.Value, s.Unit, s.Source, meta, corr)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting samples: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertCorrelation stores a correlation row and its component samples.
func (db *DB) InsertCorrelation(ctx context.Context, c healthstore.CorrelationRecord) error {
	id := uuid.New()
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO correlations (id, type_id, start_time, end_time)
		 VALUES ($1, $2, $3, $4)`,
		id, c.TypeID, c.Start, c.End); err != nil {
		return fmt.Errorf("inserting correlation: %w", err)
	}
	if _, err := db.insertSamples(ctx, c.Components, id); err != nil {
		return err
	}
	return nil
}

// InsertWorkout stores a workout with its heart-rate samples and, when route
// points are present, a single route segment spanning the workout.
func (db *DB) InsertWorkout(ctx context.Context, w healthstore.WorkoutSession, heartRate []healthstore.SampleRecord, route []healthstore.RoutePoint) error {
	var meta []byte
	if len(w.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(w.Metadata)
		if err != nil {
			return fmt.Errorf("encoding workout metadata: %w", err)
		}
	}
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO workouts (id, activity_code, start_time, end_time, duration_sec, calories, distance, source_name, source_bundle_id, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT DO NOTHING`,
		w.ID, w.ActivityCode, w.Start, w.End, w.DurationSec, w.Calories, w.Distance, w.SourceName, w.SourceBundleID, meta)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Duplicate ID: leave the existing record and its enrichments alone.
		return nil
	}

	if _, err := db.InsertSamples(ctx, heartRate); err != nil {
		return err
	}
	if len(route) == 0 {
		return nil
	}

	seg := healthstore.RouteSegment{ID: uuid.New(), WorkoutID: w.ID, Start: w.Start, End: w.End}
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO route_segments (id, workout_id, start_time, end_time)
		 VALUES ($1, $2, $3, $4)`,
		seg.ID, seg.WorkoutID, seg.Start, seg.End); err != nil {
		return fmt.Errorf("inserting route segment: %w", err)
	}

	query := `INSERT INTO route_points (segment_id, time, latitude, longitude, altitude) VALUES `
	args := make([]any, 0, len(route)*5)
	valueStrings := make([]string, 0, len(route))
	for i, p := range route {
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, seg.ID, p.Time, p.Latitude, p.Longitude, p.Altitude)
	}
	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting route points: %w", err)
	}
	return nil
}

// SetAuthorization upserts the authorization state for the given types.
func (db *DB) SetAuthorization(ctx context.Context, typeIDs []string, state healthstore.AuthorizationState) error {
	for _, id := range typeIDs {
		if _, err := db.Pool.Exec(ctx,
			`INSERT INTO authorizations (type_id, state) VALUES ($1, $2)
			 ON CONFLICT (type_id) DO UPDATE SET state = EXCLUDED.state`,
			id, string(state)); err != nil {
			return fmt.Errorf("setting authorization: %w", err)
		}
	}
	return nil
}

var _ healthstore.Writer = (*DB)(nil)
