package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
)

// TestLatestSampleHeartRateConversion verifies the unit round-trip: a raw
// record of 1 count over 1 second reads back as 60 beats per minute.
func TestLatestSampleHeartRateConversion(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.InsertSamples(ctx, []healthstore.SampleRecord{{
		TypeID: healthstore.TypeHeartRate,
		Start:  start,
		End:    start.Add(time.Second),
		Value:  1,
		Unit:   healthstore.UnitCount,
	}})

	got, err := b.LatestSample(ctx, DataTypeHeartRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Value == nil || *got.Value != 60 {
		t.Fatalf("value = %v, want 60", got.Value)
	}
	if got.Unit != healthstore.UnitCountPerMin {
		t.Errorf("unit = %q, want %q", got.Unit, healthstore.UnitCountPerMin)
	}
	if got.Timestamp.Time().UnixMilli() != start.UnixMilli() {
		t.Errorf("timestamp = %v, want %v", got.Timestamp.Time(), start)
	}
}

// TestLatestSamplePicksMostRecent verifies descending-by-start selection.
func TestLatestSamplePicksMostRecent(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	store.InsertSamples(ctx, []healthstore.SampleRecord{
		{TypeID: healthstore.TypeBodyMass, Start: base, Value: 70, Unit: healthstore.UnitKilogram},
		{TypeID: healthstore.TypeBodyMass, Start: base.Add(time.Hour), Value: 71, Unit: healthstore.UnitKilogram},
		{TypeID: healthstore.TypeBodyMass, Start: base.Add(30 * time.Minute), Value: 72, Unit: healthstore.UnitKilogram},
	})

	got, err := b.LatestSample(ctx, DataTypeWeight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Value != 71 {
		t.Errorf("value = %v, want 71", *got.Value)
	}
}

// TestLatestSampleNoData verifies the no-sample failure.
func TestLatestSampleNoData(t *testing.T) {
	b, _ := newTestBridge(nil)
	if _, err := b.LatestSample(context.Background(), DataTypeSteps); !errors.Is(err, ErrNoSampleFound) {
		t.Errorf("got %v, want ErrNoSampleFound", err)
	}
}

// TestLatestSampleQueryFailure verifies that store errors surface as a query
// failure with the cause attached.
func TestLatestSampleQueryFailure(t *testing.T) {
	b, store := newTestBridge(nil)
	store.QueryErr[healthstore.TypeStepCount] = errors.New("store offline")
	_, err := b.LatestSample(context.Background(), DataTypeSteps)
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("got %v, want ErrQueryFailed", err)
	}
}

// TestLatestSampleMindfulnessRejected verifies that mindfulness cannot be
// read through the latest-sample path.
func TestLatestSampleMindfulnessRejected(t *testing.T) {
	b, _ := newTestBridge(nil)
	if _, err := b.LatestSample(context.Background(), DataTypeMindfulness); !errors.Is(err, ErrUnsupportedDataType) {
		t.Errorf("got %v, want ErrUnsupportedDataType", err)
	}
}

// TestLatestBloodPressure verifies the composite path: a correlation of
// systolic 120 and diastolic 80 in mmHg decomposes into both components.
func TestLatestBloodPressure(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC)
	store.InsertCorrelation(ctx, healthstore.CorrelationRecord{
		TypeID: healthstore.TypeBloodPressure,
		Start:  at,
		End:    at,
		Components: []healthstore.SampleRecord{
			{TypeID: healthstore.TypeBloodPressureSystolic, Start: at, Value: 120, Unit: healthstore.UnitMMHg},
			{TypeID: healthstore.TypeBloodPressureDiastolic, Start: at, Value: 80, Unit: healthstore.UnitMMHg},
		},
	})

	got, err := b.LatestSample(ctx, DataTypeBloodPressure)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Systolic == nil || *got.Systolic != 120 {
		t.Errorf("systolic = %v, want 120", got.Systolic)
	}
	if got.Diastolic == nil || *got.Diastolic != 80 {
		t.Errorf("diastolic = %v, want 80", got.Diastolic)
	}
	if got.Unit != healthstore.UnitMMHg {
		t.Errorf("unit = %q, want mmHg", got.Unit)
	}
	if got.Value != nil {
		t.Error("composite result must not set value")
	}
}

// TestLatestBloodPressureIncomplete verifies that a correlation missing a
// required component fails even though the parent record exists.
func TestLatestBloodPressureIncomplete(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	at := time.Now()
	store.InsertCorrelation(ctx, healthstore.CorrelationRecord{
		TypeID: healthstore.TypeBloodPressure,
		Start:  at,
		Components: []healthstore.SampleRecord{
			{TypeID: healthstore.TypeBloodPressureSystolic, Start: at, Value: 120, Unit: healthstore.UnitMMHg},
		},
	})

	if _, err := b.LatestSample(ctx, DataTypeBloodPressure); !errors.Is(err, ErrIncompleteComposite) {
		t.Errorf("got %v, want ErrIncompleteComposite", err)
	}
}

// TestLatestTotalCaloriesAddsBasal verifies the derived latest value: the
// basal energy spent during the active sample's span is layered on top.
func TestLatestTotalCaloriesAddsBasal(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.InsertSamples(ctx, []healthstore.SampleRecord{
		{TypeID: healthstore.TypeActiveEnergy, Start: start, End: start.Add(time.Hour), Value: 300, Unit: healthstore.UnitKilocalorie},
		{TypeID: healthstore.TypeBasalEnergy, Start: start.Add(10 * time.Minute), End: start.Add(20 * time.Minute), Value: 50, Unit: healthstore.UnitKilocalorie},
	})

	got, err := b.LatestSample(ctx, DataTypeTotalCalories)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Value != 350 {
		t.Errorf("value = %v, want 350", *got.Value)
	}
}

// TestLatestTotalCaloriesBasalFallback verifies the fallback: when the basal
// series is unreadable the active value stands alone instead of failing.
func TestLatestTotalCaloriesBasalFallback(t *testing.T) {
	b, store := newTestBridge(nil)
	ctx := context.Background()

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store.InsertSamples(ctx, []healthstore.SampleRecord{
		{TypeID: healthstore.TypeActiveEnergy, Start: start, End: start.Add(time.Hour), Value: 300, Unit: healthstore.UnitKilocalorie},
	})
	store.QueryErr[healthstore.TypeBasalEnergy] = errors.New("permission missing")

	got, err := b.LatestSample(ctx, DataTypeTotalCalories)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Value != 300 {
		t.Errorf("value = %v, want 300", *got.Value)
	}
}
