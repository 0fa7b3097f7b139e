package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
)

func ptr(v float64) *float64 { return &v }

// TestSaveWorkoutRoundTrip verifies that a saved workout comes back through
// the query path with its enrichments intact.
func TestSaveWorkoutRoundTrip(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	id, err := b.SaveWorkout(ctx, SaveWorkoutRequest{
		ActivityType: "running",
		Start:        start,
		End:          start.Add(30 * time.Minute),
		Calories:     ptr(320),
		Distance:     ptr(6000),
		Metadata:     map[string]any{"indoor": false, "shoe": "trail"},
		HeartRateSamples: []HeartRateSample{
			{Timestamp: Millis(start.Add(10 * time.Minute)), BPM: 155},
		},
		Route: []RouteSample{
			{Timestamp: Millis(start.Add(5 * time.Minute)), Lat: 47.1, Lng: 8.1, Alt: 400},
		},
	})
	if err != nil {
		t.Fatalf("SaveWorkout: %v", err)
	}

	res, err := b.QueryWorkouts(ctx, WorkoutsRequest{
		Start: start.Add(-time.Minute), End: start.Add(time.Hour),
		IncludeHeartRate: true, IncludeRoute: true,
	})
	if err != nil {
		t.Fatalf("QueryWorkouts: %v", err)
	}
	if len(res.Workouts) != 1 {
		t.Fatalf("got %d workouts, want 1", len(res.Workouts))
	}
	rec := res.Workouts[0]
	if rec.ID != id.String() {
		t.Errorf("id = %q, want %q", rec.ID, id)
	}
	if rec.WorkoutType != "running" || rec.Calories != 320 || rec.Distance != 6000 {
		t.Errorf("workout fields not persisted: %+v", rec)
	}
	if len(rec.HeartRate) != 1 || rec.HeartRate[0].BPM != 155 {
		t.Errorf("heartRate = %+v, want one 155bpm sample", rec.HeartRate)
	}
	if len(rec.Route) != 1 || rec.Route[0].Lat != 47.1 {
		t.Errorf("route = %+v, want the saved point", rec.Route)
	}

	sessions, err := store.WorkoutSessions(ctx, start.Add(-time.Minute), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("WorkoutSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Metadata["shoe"] != "trail" {
		t.Errorf("stored metadata = %+v, want the saved map", sessions[0].Metadata)
	}
}

// TestSaveWorkoutInvalidRange verifies time validation.
func TestSaveWorkoutInvalidRange(t *testing.T) {
	b, _ := newTestBridge(nil)
	now := time.Now()
	_, err := b.SaveWorkout(context.Background(), SaveWorkoutRequest{
		ActivityType: "running", Start: now, End: now,
	})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("got %v, want ErrInvalidParameters", err)
	}
}

// TestSaveMetrics verifies that body metrics land as samples readable
// through the latest path.
func TestSaveMetrics(t *testing.T) {
	b, _ := newTestBridge(nil)
	ctx := context.Background()

	n, err := b.SaveMetrics(ctx, SaveMetricsRequest{
		WeightKg:         ptr(71.5),
		RestingHeartRate: ptr(52),
	})
	if err != nil {
		t.Fatalf("SaveMetrics: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d samples, want 2", n)
	}

	got, err := b.LatestWeight(ctx)
	if err != nil {
		t.Fatalf("LatestWeight: %v", err)
	}
	if got.Value == nil || *got.Value != 71.5 || got.Unit != healthstore.UnitKilogram {
		t.Errorf("latest weight = %+v, want 71.5 kg", got)
	}
}

// TestSaveMetricsEmpty verifies that an all-nil request is rejected.
func TestSaveMetricsEmpty(t *testing.T) {
	b, _ := newTestBridge(nil)
	_, err := b.SaveMetrics(context.Background(), SaveMetricsRequest{})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("got %v, want ErrInvalidParameters", err)
	}
}
