package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

// InsertSamples stores raw samples, skipping duplicates. Returns the number
// actually inserted.
func (d *DB) InsertSamples(ctx context.Context, samples []healthstore.SampleRecord) (int64, error) {
	return d.insertSamples(ctx, samples, "")
}

func (d *DB) insertSamples(ctx context.Context, samples []healthstore.SampleRecord, correlationID string) (int64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO samples (type_id, start_ms, end_ms, value, units, source, metadata, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, s := range samples {
		var meta any
		if len(s.Metadata) > 0 {
			b, err := json.Marshal(s.Metadata)
			if err != nil {
				return 0, fmt.Errorf("encoding sample metadata: %w", err)
			}
			meta = string(b)
		}
		var corr any
		if correlationID != "" {
			corr = correlationID
		}
		res, err := stmt.ExecContext(ctx, s.TypeID, ms(s.Start), ms(s.End), s.Value, s.Unit, s.Source, meta, corr)
		if err != nil {
			return 0, fmt.Errorf("inserting sample: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing samples: %w", err)
	}
	return inserted, nil
}

// InsertCorrelation stores a correlation row and its component samples.
func (d *DB) InsertCorrelation(ctx context.Context, c healthstore.CorrelationRecord) error {
	id := uuid.New().String()
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO correlations (id, type_id, start_ms, end_ms) VALUES (?, ?, ?, ?)`,
		id, c.TypeID, ms(c.Start), ms(c.End)); err != nil {
		return fmt.Errorf("inserting correlation: %w", err)
	}
	if _, err := d.insertSamples(ctx, c.Components, id); err != nil {
		return err
	}
	return nil
}

// InsertWorkout stores a workout with its heart-rate samples and, when route
// points are present, a single route segment spanning the workout.
func (d *DB) InsertWorkout(ctx context.Context, w healthstore.WorkoutSession, heartRate []healthstore.SampleRecord, route []healthstore.RoutePoint) error {
	var meta any
	if len(w.Metadata) > 0 {
		b, err := json.Marshal(w.Metadata)
		if err != nil {
			return fmt.Errorf("encoding workout metadata: %w", err)
		}
		meta = string(b)
	}
	res, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO workouts (id, activity_code, start_ms, end_ms, duration_sec, calories, distance, source_name, source_bundle_id, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID.String(), w.ActivityCode, ms(w.Start), ms(w.End), w.DurationSec, w.Calories, w.Distance, w.SourceName, w.SourceBundleID, meta)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := d.InsertSamples(ctx, heartRate); err != nil {
		return err
	}
	if len(route) == 0 {
		return nil
	}

	segID := uuid.New().String()
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO route_segments (id, workout_id, start_ms, end_ms) VALUES (?, ?, ?, ?)`,
		segID, w.ID.String(), ms(w.Start), ms(w.End)); err != nil {
		return fmt.Errorf("inserting route segment: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO route_points (segment_id, time_ms, latitude, longitude, altitude)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing route insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range route {
		if _, err := stmt.ExecContext(ctx, segID, ms(p.Time), p.Latitude, p.Longitude, p.Altitude); err != nil {
			return fmt.Errorf("inserting route point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing route points: %w", err)
	}
	return nil
}

// SetAuthorization upserts the authorization state for the given types.
func (d *DB) SetAuthorization(ctx context.Context, typeIDs []string, state healthstore.AuthorizationState) error {
	for _, id := range typeIDs {
		if _, err := d.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO authorizations (type_id, state) VALUES (?, ?)`,
			id, string(state)); err != nil {
			return fmt.Errorf("setting authorization: %w", err)
		}
	}
	return nil
}

var _ healthstore.Writer = (*DB)(nil)
