// Package healthstore defines the contract between the bridge and a backing
// health record store. A store holds raw native records (quantity samples,
// correlations, workout sessions, route series) and answers queries for them;
// it never interprets cross-platform data-type tags — that is the bridge's job.
package healthstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuthorizationState is the per-record-type read authorization state.
type AuthorizationState string

const (
	NotDetermined AuthorizationState = "notDetermined"
	Denied        AuthorizationState = "denied"
	Authorized    AuthorizationState = "authorized"
)

// Native record-type identifiers. These name categories of stored records,
// not cross-platform data types.
const (
	TypeStepCount              = "quantity/step-count"
	TypeHeartRate              = "quantity/heart-rate"
	TypeRestingHeartRate       = "quantity/resting-heart-rate"
	TypeBodyMass               = "quantity/body-mass"
	TypeBodyFat                = "quantity/body-fat-percentage"
	TypeHeight                 = "quantity/height"
	TypeHRV                    = "quantity/hrv-sdnn"
	TypeActiveEnergy           = "quantity/active-energy-burned"
	TypeBasalEnergy            = "quantity/basal-energy-burned"
	TypeDistanceWalkingRunning = "quantity/distance-walking-running"
	TypeDistanceCycling        = "quantity/distance-cycling"
	TypeDistanceSwimming       = "quantity/distance-swimming"
	TypeDistanceSnowSports     = "quantity/distance-downhill-snow-sports"
	TypeBloodPressureSystolic  = "quantity/blood-pressure-systolic"
	TypeBloodPressureDiastolic = "quantity/blood-pressure-diastolic"
	TypeBloodPressure          = "correlation/blood-pressure"
	TypeMindfulSession         = "category/mindful-session"
	TypeWorkout                = "workout"
	TypeWorkoutRoute           = "series/workout-route"
)

// ErrSettingsUnavailable is returned by OpenSettings when the store has no
// settings surface to navigate to.
var ErrSettingsUnavailable = errors.New("settings surface unavailable")

// SampleRecord is one raw health record as stored. Value is expressed in
// Unit, which is whatever unit the record was written with; callers convert
// on read via Convert.
type SampleRecord struct {
	TypeID   string
	Start    time.Time
	End      time.Time
	Value    float64
	Unit     string
	Source   string
	Metadata map[string]any
}

// Duration returns the time the sample spans. Point-in-time samples
// (End before or equal to Start) have zero duration.
func (s SampleRecord) Duration() time.Duration {
	if !s.End.After(s.Start) {
		return 0
	}
	return s.End.Sub(s.Start)
}

// CorrelationRecord bundles related sub-samples under one parent record,
// e.g. systolic + diastolic blood pressure.
type CorrelationRecord struct {
	TypeID     string
	Start      time.Time
	End        time.Time
	Components []SampleRecord
}

// Component returns the first component of the given type, or nil.
func (c *CorrelationRecord) Component(typeID string) *SampleRecord {
	for i := range c.Components {
		if c.Components[i].TypeID == typeID {
			return &c.Components[i]
		}
	}
	return nil
}

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Statistic is one reduced bucket from a statistics collection.
type Statistic struct {
	Start time.Time
	End   time.Time
	Value float64
	Unit  string
	Count int
}

// WorkoutSession is one stored workout record, before enrichment.
type WorkoutSession struct {
	ID             uuid.UUID
	ActivityCode   uint32
	Start          time.Time
	End            time.Time
	DurationSec    float64
	Calories       float64 // kcal
	Distance       float64 // meters
	SourceName     string
	SourceBundleID string
	Metadata       map[string]any
}

// RouteSegment is one stored route series attached to a workout. A workout
// may have several segments; each delivers its points as a stream.
type RouteSegment struct {
	ID        uuid.UUID
	WorkoutID uuid.UUID
	Start     time.Time
	End       time.Time
}

// RoutePoint is one location fix on a route.
type RoutePoint struct {
	Time      time.Time
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Store is the read-side contract of a backing health record store.
//
// Every method issues one logical query and completes it exactly once.
// StreamRoutePoints is the single streaming call: deliver may be invoked
// multiple times, possibly from different goroutines, before the call
// returns; it is never invoked after the call returns. Callers that
// accumulate delivered batches must serialize the appends themselves.
type Store interface {
	// Available reports whether the record store is reachable.
	Available(ctx context.Context) (bool, error)

	// AuthorizationStatus returns the read authorization state for one type.
	AuthorizationStatus(ctx context.Context, typeID string) (AuthorizationState, error)

	// RequestAuthorization issues one bulk read-authorization request for all
	// the given types. The store reports only the overall outcome: true means
	// the request was accepted (not that every type was individually granted).
	RequestAuthorization(ctx context.Context, typeIDs []string) (bool, error)

	// LatestSample returns the most recent sample of the given type by start
	// time, or nil when the store holds none.
	LatestSample(ctx context.Context, typeID string) (*SampleRecord, error)

	// Samples returns all samples of the given type with Start in [start, end).
	Samples(ctx context.Context, typeID string, start, end time.Time) ([]SampleRecord, error)

	// LatestCorrelation returns the most recent correlation record of the
	// given type, or nil when the store holds none.
	LatestCorrelation(ctx context.Context, typeID string) (*CorrelationRecord, error)

	// CollectStatistics reduces the samples of one type into the given
	// buckets using op, converting each sample to unit before reduction.
	// Buckets with no underlying samples are omitted from the result.
	CollectStatistics(ctx context.Context, typeID, unit string, buckets []Interval, op StatisticOp) ([]Statistic, error)

	// WorkoutSessions returns workouts with Start in [start, end).
	WorkoutSessions(ctx context.Context, start, end time.Time) ([]WorkoutSession, error)

	// RouteSegments returns the route segments attached to a workout.
	RouteSegments(ctx context.Context, workoutID uuid.UUID) ([]RouteSegment, error)

	// StreamRoutePoints delivers the points of one segment in batches, in
	// on-route order. See the interface comment for the delivery contract.
	StreamRoutePoints(ctx context.Context, segmentID uuid.UUID, deliver func(batch []RoutePoint)) error

	// OpenSettings navigates to the store's permission settings surface.
	// Returns ErrSettingsUnavailable when the store has none.
	OpenSettings(ctx context.Context) error
}

// Writer is the write-side contract, implemented by database-backed stores
// and consumed by the ingest and save paths.
type Writer interface {
	// InsertSamples stores raw samples. Returns the number inserted.
	InsertSamples(ctx context.Context, samples []SampleRecord) (int64, error)

	// InsertCorrelation stores a correlation with its components.
	InsertCorrelation(ctx context.Context, c CorrelationRecord) error

	// InsertWorkout stores a workout session together with its heart-rate
	// samples and, when route is non-empty, one route segment holding the
	// given points.
	InsertWorkout(ctx context.Context, w WorkoutSession, heartRate []SampleRecord, route []RoutePoint) error

	// SetAuthorization records the authorization state for the given types.
	SetAuthorization(ctx context.Context, typeIDs []string, state AuthorizationState) error
}
