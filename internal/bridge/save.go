package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

// SaveWorkoutRequest describes a workout session to persist, with optional
// totals and sample streams.
type SaveWorkoutRequest struct {
	ActivityType     string
	Start            time.Time
	End              time.Time
	Calories         *float64 // kcal
	Distance         *float64 // meters
	Metadata         map[string]any
	Route            []RouteSample
	HeartRateSamples []HeartRateSample
}

// SaveWorkout persists a workout session through the store's write side.
// The activity tag is mapped through the write-direction activity table.
func (b *Bridge) SaveWorkout(ctx context.Context, req SaveWorkoutRequest) (uuid.UUID, error) {
	if b.writer == nil {
		return uuid.Nil, fmt.Errorf("%w: store is read-only", ErrInvalidParameters)
	}
	if !req.End.After(req.Start) {
		return uuid.Nil, fmt.Errorf("%w: endDate must be after startDate", ErrInvalidParameters)
	}

	w := healthstore.WorkoutSession{
		ID:           uuid.New(),
		ActivityCode: ActivityCode(req.ActivityType),
		Start:        req.Start,
		End:          req.End,
		DurationSec:  req.End.Sub(req.Start).Seconds(),
		Metadata:     req.Metadata,
	}
	if req.Calories != nil {
		w.Calories = *req.Calories
	}
	if req.Distance != nil {
		w.Distance = *req.Distance
	}

	hr := make([]healthstore.SampleRecord, 0, len(req.HeartRateSamples))
	for _, s := range req.HeartRateSamples {
		hr = append(hr, healthstore.SampleRecord{
			TypeID: healthstore.TypeHeartRate,
			Start:  s.Timestamp.Time(),
			End:    s.Timestamp.Time(),
			Value:  s.BPM,
			Unit:   healthstore.UnitCountPerMin,
		})
	}

	route := make([]healthstore.RoutePoint, 0, len(req.Route))
	for _, p := range req.Route {
		route = append(route, healthstore.RoutePoint{
			Time:      p.Timestamp.Time(),
			Latitude:  p.Lat,
			Longitude: p.Lng,
			Altitude:  p.Alt,
		})
	}

	if err := b.writer.InsertWorkout(ctx, w, hr, route); err != nil {
		return uuid.Nil, fmt.Errorf("saving workout: %w", err)
	}
	return w.ID, nil
}

// SaveMetricsRequest carries user-provided body metrics.
type SaveMetricsRequest struct {
	WeightKg         *float64
	HeightCm         *float64
	BodyFatPercent   *float64
	RestingHeartRate *float64
}

// SaveMetrics persists the provided body metrics as point-in-time samples
// stamped now. Returns the number of samples written.
func (b *Bridge) SaveMetrics(ctx context.Context, req SaveMetricsRequest) (int64, error) {
	if b.writer == nil {
		return 0, fmt.Errorf("%w: store is read-only", ErrInvalidParameters)
	}

	now := time.Now()
	sample := func(typeID string, value float64, unit string) healthstore.SampleRecord {
		return healthstore.SampleRecord{TypeID: typeID, Start: now, End: now, Value: value, Unit: unit}
	}

	var samples []healthstore.SampleRecord
	if req.WeightKg != nil {
		samples = append(samples, sample(healthstore.TypeBodyMass, *req.WeightKg, healthstore.UnitKilogram))
	}
	if req.HeightCm != nil {
		samples = append(samples, sample(healthstore.TypeHeight, *req.HeightCm, healthstore.UnitCentimeter))
	}
	if req.BodyFatPercent != nil {
		samples = append(samples, sample(healthstore.TypeBodyFat, *req.BodyFatPercent, healthstore.UnitPercent))
	}
	if req.RestingHeartRate != nil {
		samples = append(samples, sample(healthstore.TypeRestingHeartRate, *req.RestingHeartRate, healthstore.UnitCountPerMin))
	}
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: no metrics provided", ErrInvalidParameters)
	}

	n, err := b.writer.InsertSamples(ctx, samples)
	if err != nil {
		return 0, fmt.Errorf("saving metrics: %w", err)
	}
	return n, nil
}

// Convenience wrappers around LatestSample for the most common types.

func (b *Bridge) LatestWeight(ctx context.Context) (*LatestSampleResult, error) {
	return b.LatestSample(ctx, DataTypeWeight)
}

func (b *Bridge) LatestHeight(ctx context.Context) (*LatestSampleResult, error) {
	return b.LatestSample(ctx, DataTypeHeight)
}

func (b *Bridge) LatestHeartRate(ctx context.Context) (*LatestSampleResult, error) {
	return b.LatestSample(ctx, DataTypeHeartRate)
}

func (b *Bridge) LatestSteps(ctx context.Context) (*LatestSampleResult, error) {
	return b.LatestSample(ctx, DataTypeSteps)
}
