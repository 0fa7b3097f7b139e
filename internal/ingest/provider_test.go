package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

func newTestProvider() (*Provider, *healthstore.MemoryStore) {
	store := healthstore.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProvider(store, log), store
}

func decodePayload(t *testing.T, body string) *Payload {
	t.Helper()
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	return &p
}

// TestIngestQtyMetric verifies the standard qty shape lands as a sample with
// the binding's type and unit.
func TestIngestQtyMetric(t *testing.T) {
	p, store := newTestProvider()
	ctx := context.Background()

	payload := decodePayload(t, `{"data":{"metrics":[
		{"name":"step_count","units":"count","data":[
			{"date":"2024-06-01 08:00:00 +0000","qty":1200}
		]}
	]}}`)

	res, err := p.Ingest(ctx, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SamplesReceived != 1 || res.SamplesInserted != 1 {
		t.Errorf("result = %+v, want 1 received, 1 inserted", res)
	}

	s, err := store.LatestSample(ctx, healthstore.TypeStepCount)
	if err != nil || s == nil {
		t.Fatalf("LatestSample = %v, %v", s, err)
	}
	if s.Value != 1200 || s.Unit != healthstore.UnitCount {
		t.Errorf("sample = %+v, want 1200 count", s)
	}
	want := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	if !s.Start.Equal(want) {
		t.Errorf("start = %v, want %v", s.Start, want)
	}
}

// TestIngestHeartRateUsesAvg verifies the min/avg/max shape stores the
// average.
func TestIngestHeartRateUsesAvg(t *testing.T) {
	p, store := newTestProvider()
	ctx := context.Background()

	payload := decodePayload(t, `{"data":{"metrics":[
		{"name":"heart_rate","units":"count/min","data":[
			{"date":"2024-06-01 08:00:00 +0000","Min":55,"Avg":62,"Max":80}
		]}
	]}}`)

	if _, err := p.Ingest(ctx, payload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	s, _ := store.LatestSample(ctx, healthstore.TypeHeartRate)
	if s == nil || s.Value != 62 || s.Unit != healthstore.UnitCountPerMin {
		t.Errorf("sample = %+v, want avg 62 count/min", s)
	}
}

// TestIngestBloodPressureCorrelation verifies blood pressure lands as a
// correlation with both components.
func TestIngestBloodPressureCorrelation(t *testing.T) {
	p, store := newTestProvider()
	ctx := context.Background()

	payload := decodePayload(t, `{"data":{"metrics":[
		{"name":"blood_pressure","units":"mmHg","data":[
			{"date":"2024-06-01 09:00:00 +0000","systolic":121,"diastolic":79}
		]}
	]}}`)

	if _, err := p.Ingest(ctx, payload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	c, err := store.LatestCorrelation(ctx, healthstore.TypeBloodPressure)
	if err != nil || c == nil {
		t.Fatalf("LatestCorrelation = %v, %v", c, err)
	}
	sys := c.Component(healthstore.TypeBloodPressureSystolic)
	dia := c.Component(healthstore.TypeBloodPressureDiastolic)
	if sys == nil || sys.Value != 121 || dia == nil || dia.Value != 79 {
		t.Errorf("components = %+v / %+v, want 121/79", sys, dia)
	}
}

// TestIngestMindfulInterval verifies mindful sessions keep their span so the
// duration-accumulation path can sum them.
func TestIngestMindfulInterval(t *testing.T) {
	p, store := newTestProvider()
	ctx := context.Background()

	payload := decodePayload(t, `{"data":{"metrics":[
		{"name":"mindful_minutes","units":"min","data":[
			{"start":"2024-06-01 09:00:00 +0000","end":"2024-06-01 09:10:00 +0000","qty":10}
		]}
	]}}`)

	if _, err := p.Ingest(ctx, payload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	s, _ := store.LatestSample(ctx, healthstore.TypeMindfulSession)
	if s == nil {
		t.Fatal("mindful session not stored")
	}
	if s.Duration() != 10*time.Minute {
		t.Errorf("duration = %v, want 10m", s.Duration())
	}
}

// TestIngestRejectsUnknownMetrics verifies unmapped names are rejected and
// named in the result.
func TestIngestRejectsUnknownMetrics(t *testing.T) {
	p, _ := newTestProvider()

	payload := decodePayload(t, `{"data":{"metrics":[
		{"name":"blood_glucose","units":"mg/dL","data":[
			{"date":"2024-06-01 08:00:00 +0000","qty":95},
			{"date":"2024-06-01 09:00:00 +0000","qty":99}
		]},
		{"name":"step_count","units":"count","data":[
			{"date":"2024-06-01 08:00:00 +0000","qty":500}
		]}
	]}}`)

	res, err := p.Ingest(context.Background(), payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.SamplesRejected != 2 {
		t.Errorf("rejected = %d, want 2", res.SamplesRejected)
	}
	if len(res.RejectedNames) != 1 || res.RejectedNames[0] != "blood_glucose" {
		t.Errorf("rejected names = %v, want [blood_glucose]", res.RejectedNames)
	}
	if res.SamplesInserted != 1 {
		t.Errorf("inserted = %d, want the accepted step sample", res.SamplesInserted)
	}
	if res.Message == "" {
		t.Error("rejection message missing")
	}
}

// TestIngestWorkout verifies workout sessions land with their enrichments
// and a mapped activity code.
func TestIngestWorkout(t *testing.T) {
	p, store := newTestProvider()
	ctx := context.Background()

	id := uuid.New()
	payload := decodePayload(t, `{"data":{"workouts":[{
		"id":"`+id.String()+`",
		"name":"Outdoor Running",
		"start":"2024-06-01 07:00:00 +0000",
		"end":"2024-06-01 08:00:00 +0000",
		"duration":3600,
		"activeEnergyBurned":{"qty":400,"units":"kcal"},
		"distance":{"qty":8,"units":"km"},
		"heartRateData":[{"date":"2024-06-01 07:10:00 +0000","Min":120,"Avg":145,"Max":170,"source":"Watch"}],
		"route":[{"latitude":47.1,"longitude":8.1,"altitude":400,"timestamp":"2024-06-01 07:05:00 +0000"}]
	}]}}`)

	res, err := p.Ingest(ctx, payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.WorkoutsInserted != 1 {
		t.Fatalf("result = %+v, want 1 workout inserted", res)
	}

	sessions, _ := store.WorkoutSessions(ctx,
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	w := sessions[0]
	if w.ID != id || w.ActivityCode != 37 {
		t.Errorf("session = %+v, want id %s with running code 37", w, id)
	}
	if w.Calories != 400 || w.Distance != 8000 {
		t.Errorf("totals = %v kcal / %v m, want 400 / 8000", w.Calories, w.Distance)
	}

	hr, _ := store.Samples(ctx, healthstore.TypeHeartRate, w.Start, w.End)
	if len(hr) != 1 || hr[0].Value != 145 {
		t.Errorf("workout HR = %+v, want one avg-145 sample", hr)
	}

	segs, _ := store.RouteSegments(ctx, w.ID)
	if len(segs) != 1 {
		t.Errorf("got %d route segments, want 1", len(segs))
	}
}

// TestIngestWorkoutBadID verifies invalid workout IDs are skipped, not
// fatal.
func TestIngestWorkoutBadID(t *testing.T) {
	p, _ := newTestProvider()

	payload := decodePayload(t, `{"data":{"workouts":[{
		"id":"not-a-uuid",
		"name":"Running",
		"start":"2024-06-01 07:00:00 +0000",
		"end":"2024-06-01 08:00:00 +0000",
		"duration":3600
	}]}}`)

	res, err := p.Ingest(context.Background(), payload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.WorkoutsReceived != 1 || res.WorkoutsInserted != 0 {
		t.Errorf("result = %+v, want received 1, inserted 0", res)
	}
}

// TestWorkoutTagNormalization verifies HAE workout names map onto the save
// vocabulary.
func TestWorkoutTagNormalization(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Outdoor Running", "running"},
		{"Indoor Cycling", "cycling"},
		{"Strength Training", "strength-training"},
		{"Snowboarding", "snowboarding"},
	}
	for _, tt := range tests {
		if got := workoutTag(tt.name); got != tt.want {
			t.Errorf("workoutTag(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
