package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSampleRoundTrip verifies insert, latest and range queries.
func TestSampleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	n, err := db.InsertSamples(ctx, []healthstore.SampleRecord{
		{TypeID: healthstore.TypeStepCount, Start: base, End: base, Value: 100, Unit: healthstore.UnitCount, Source: "watch"},
		{TypeID: healthstore.TypeStepCount, Start: base.Add(time.Hour), End: base.Add(time.Hour), Value: 200, Unit: healthstore.UnitCount, Source: "watch"},
	})
	if err != nil {
		t.Fatalf("InsertSamples: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d, want 2", n)
	}

	latest, err := db.LatestSample(ctx, healthstore.TypeStepCount)
	if err != nil {
		t.Fatalf("LatestSample: %v", err)
	}
	if latest == nil || latest.Value != 200 {
		t.Errorf("latest = %+v, want value 200", latest)
	}

	got, err := db.Samples(ctx, healthstore.TypeStepCount, base, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != 1 || got[0].Value != 100 || got[0].Source != "watch" {
		t.Errorf("range samples = %+v, want the 100-step sample", got)
	}
}

// TestInsertSamplesSkipsDuplicates verifies the insert is idempotent.
func TestInsertSamplesSkipsDuplicates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	rec := healthstore.SampleRecord{
		TypeID: healthstore.TypeHeartRate, Start: base, End: base, Value: 62,
		Unit: healthstore.UnitCountPerMin, Source: "watch",
	}
	if _, err := db.InsertSamples(ctx, []healthstore.SampleRecord{rec}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	n, err := db.InsertSamples(ctx, []healthstore.SampleRecord{rec})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if n != 0 {
		t.Errorf("duplicate inserted %d rows, want 0", n)
	}
}

// TestLatestSampleEmpty verifies the no-data contract: nil, nil.
func TestLatestSampleEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := db.LatestSample(context.Background(), healthstore.TypeBodyMass)
	if err != nil {
		t.Fatalf("LatestSample: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

// TestCorrelationRoundTrip verifies that correlation components come back
// attached to their parent and stay out of the plain sample queries.
func TestCorrelationRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	err := db.InsertCorrelation(ctx, healthstore.CorrelationRecord{
		TypeID: healthstore.TypeBloodPressure, Start: at, End: at,
		Components: []healthstore.SampleRecord{
			{TypeID: healthstore.TypeBloodPressureSystolic, Start: at, End: at, Value: 120, Unit: healthstore.UnitMMHg},
			{TypeID: healthstore.TypeBloodPressureDiastolic, Start: at, End: at, Value: 80, Unit: healthstore.UnitMMHg},
		},
	})
	if err != nil {
		t.Fatalf("InsertCorrelation: %v", err)
	}

	c, err := db.LatestCorrelation(ctx, healthstore.TypeBloodPressure)
	if err != nil {
		t.Fatalf("LatestCorrelation: %v", err)
	}
	if c == nil || len(c.Components) != 2 {
		t.Fatalf("correlation = %+v, want 2 components", c)
	}
	sys := c.Component(healthstore.TypeBloodPressureSystolic)
	if sys == nil || sys.Value != 120 {
		t.Errorf("systolic component = %+v, want 120", sys)
	}

	// Components must not surface as standalone latest samples.
	loose, err := db.LatestSample(ctx, healthstore.TypeBloodPressureSystolic)
	if err != nil {
		t.Fatalf("LatestSample: %v", err)
	}
	if loose != nil {
		t.Errorf("correlation component leaked into plain samples: %+v", loose)
	}
}

// TestCollectStatistics verifies bucketed reduction through the shared
// reducer.
func TestCollectStatistics(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	db.InsertSamples(ctx, []healthstore.SampleRecord{
		{TypeID: healthstore.TypeStepCount, Start: base.Add(5 * time.Minute), End: base.Add(5 * time.Minute), Value: 100, Unit: healthstore.UnitCount},
		{TypeID: healthstore.TypeStepCount, Start: base.Add(10 * time.Minute), End: base.Add(10 * time.Minute), Value: 150, Unit: healthstore.UnitCount},
		{TypeID: healthstore.TypeStepCount, Start: base.Add(90 * time.Minute), End: base.Add(90 * time.Minute), Value: 50, Unit: healthstore.UnitCount},
	})

	buckets := []healthstore.Interval{
		{Start: base, End: base.Add(time.Hour)},
		{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)},
	}
	stats, err := db.CollectStatistics(ctx, healthstore.TypeStepCount, healthstore.UnitCount, buckets, healthstore.OpSum)
	if err != nil {
		t.Fatalf("CollectStatistics: %v", err)
	}
	if len(stats) != 2 || stats[0].Value != 250 || stats[1].Value != 50 {
		t.Errorf("stats = %+v, want sums 250 and 50", stats)
	}
}

// TestWorkoutRoundTrip verifies workout, segment and point persistence,
// including stream batch order.
func TestWorkoutRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	w := healthstore.WorkoutSession{
		ID: uuid.New(), ActivityCode: 37, Start: start, End: start.Add(time.Hour),
		DurationSec: 3600, Calories: 400, Distance: 8000,
		SourceName: "Watch", SourceBundleID: "com.example.watch",
		Metadata: map[string]any{"indoor": true},
	}
	route := []healthstore.RoutePoint{
		{Time: start.Add(1 * time.Minute), Latitude: 47.1, Longitude: 8.1, Altitude: 400},
		{Time: start.Add(2 * time.Minute), Latitude: 47.2, Longitude: 8.2, Altitude: 410},
	}
	if err := db.InsertWorkout(ctx, w, nil, route); err != nil {
		t.Fatalf("InsertWorkout: %v", err)
	}

	sessions, err := db.WorkoutSessions(ctx, start.Add(-time.Hour), start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("WorkoutSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != w.ID || sessions[0].ActivityCode != 37 {
		t.Fatalf("sessions = %+v, want the inserted workout", sessions)
	}
	if sessions[0].Metadata["indoor"] != true {
		t.Errorf("metadata = %+v, want indoor=true round-tripped", sessions[0].Metadata)
	}

	segs, err := db.RouteSegments(ctx, w.ID)
	if err != nil {
		t.Fatalf("RouteSegments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}

	var pts []healthstore.RoutePoint
	err = db.StreamRoutePoints(ctx, segs[0].ID, func(batch []healthstore.RoutePoint) {
		pts = append(pts, batch...)
	})
	if err != nil {
		t.Fatalf("StreamRoutePoints: %v", err)
	}
	if len(pts) != 2 || pts[0].Latitude != 47.1 || pts[1].Latitude != 47.2 {
		t.Errorf("points = %+v, want the two inserted points in time order", pts)
	}
}

// TestAuthorizationStates verifies the status/request/set cycle.
func TestAuthorizationStates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	st, err := db.AuthorizationStatus(ctx, healthstore.TypeStepCount)
	if err != nil {
		t.Fatalf("AuthorizationStatus: %v", err)
	}
	if st != healthstore.NotDetermined {
		t.Errorf("initial state = %q, want notDetermined", st)
	}

	ok, err := db.RequestAuthorization(ctx, []string{healthstore.TypeStepCount})
	if err != nil || !ok {
		t.Fatalf("RequestAuthorization = %v, %v, want granted", ok, err)
	}
	st, _ = db.AuthorizationStatus(ctx, healthstore.TypeStepCount)
	if st != healthstore.Authorized {
		t.Errorf("state after grant = %q, want authorized", st)
	}

	db.GrantOnAsk = false
	ok, err = db.RequestAuthorization(ctx, []string{healthstore.TypeHeartRate})
	if err != nil || ok {
		t.Errorf("RequestAuthorization with GrantOnAsk off = %v, %v, want refused", ok, err)
	}

	if err := db.SetAuthorization(ctx, []string{healthstore.TypeHeartRate}, healthstore.Denied); err != nil {
		t.Fatalf("SetAuthorization: %v", err)
	}
	st, _ = db.AuthorizationStatus(ctx, healthstore.TypeHeartRate)
	if st != healthstore.Denied {
		t.Errorf("state = %q, want denied", st)
	}
}
