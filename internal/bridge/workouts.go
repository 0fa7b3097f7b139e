package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
	"golang.org/x/sync/errgroup"
)

// Enrichment kinds, the keys of the workout error map.
const (
	EnrichHeartRate = "heart-rate"
	EnrichRoute     = "route"
	EnrichSteps     = "steps"
)

// HeartRateSample is one heart-rate point attached to a workout.
type HeartRateSample struct {
	Timestamp Millis  `json:"timestamp"`
	BPM       float64 `json:"bpm"`
}

// WorkoutRecord is one workout session merged with its requested
// enrichments. A failed enrichment leaves its field empty and is recorded in
// the result's error map; it never invalidates the record.
type WorkoutRecord struct {
	ID             string            `json:"id"`
	StartDate      Millis            `json:"startDate"`
	EndDate        Millis            `json:"endDate"`
	WorkoutType    string            `json:"workoutType"`
	SourceName     string            `json:"sourceName"`
	SourceBundleID string            `json:"sourceBundleId"`
	Duration       float64           `json:"duration"`
	Calories       float64           `json:"calories"`
	Distance       float64           `json:"distance"`
	Steps          *float64          `json:"steps,omitempty"`
	HeartRate      []HeartRateSample `json:"heartRate,omitempty"`
	Route          []RouteSample     `json:"route,omitempty"`
}

// WorkoutsRequest selects the range and the enrichments to fetch.
type WorkoutsRequest struct {
	Start            time.Time
	End              time.Time
	IncludeHeartRate bool
	IncludeRoute     bool
	IncludeSteps     bool
}

// WorkoutsResult pairs the assembled records with the enrichment error map,
// keyed by enrichment kind and then workout ID so one workout's failure can
// never overwrite another's.
type WorkoutsResult struct {
	Workouts []WorkoutRecord              `json:"workouts"`
	Errors   map[string]map[string]string `json:"errors,omitempty"`
}

// QueryWorkouts fetches all workouts overlapping [start, end) and enriches
// each with the requested subset of heart rate, route and step total.
//
// Enrichments fan out concurrently per workout, and workouts fan out
// concurrently across the range; each enrichment failure is isolated to its
// (workout, kind) error entry while sibling fetches proceed.
func (b *Bridge) QueryWorkouts(ctx context.Context, req WorkoutsRequest) (*WorkoutsResult, error) {
	if !req.End.After(req.Start) {
		return nil, fmt.Errorf("%w: endDate must be after startDate", ErrInvalidParameters)
	}

	sessions, err := b.store.WorkoutSessions(ctx, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	result := &WorkoutsResult{
		Workouts: make([]WorkoutRecord, len(sessions)),
		Errors:   map[string]map[string]string{},
	}
	var errMu sync.Mutex
	record := func(kind, workoutID string, err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if result.Errors[kind] == nil {
			result.Errors[kind] = map[string]string{}
		}
		result.Errors[kind][workoutID] = err.Error()
	}

	// Outer scope across workouts; inner scope per workout. Enrichment
	// errors are recorded, not returned, so neither scope aborts early.
	outer, ctx := errgroup.WithContext(ctx)
	for i, w := range sessions {
		outer.Go(func() error {
			rec := &result.Workouts[i]
			*rec = WorkoutRecord{
				ID:             w.ID.String(),
				StartDate:      Millis(w.Start),
				EndDate:        Millis(w.End),
				WorkoutType:    ActivityTag(w.ActivityCode),
				SourceName:     w.SourceName,
				SourceBundleID: w.SourceBundleID,
				Duration:       w.DurationSec,
				Calories:       w.Calories,
				Distance:       w.Distance,
			}

			inner, ctx := errgroup.WithContext(ctx)
			if req.IncludeHeartRate {
				inner.Go(func() error {
					hr, err := b.fetchHeartRate(ctx, w.Start, w.End)
					if err != nil {
						record(EnrichHeartRate, rec.ID, err)
						return nil
					}
					rec.HeartRate = hr
					return nil
				})
			}
			if req.IncludeRoute {
				inner.Go(func() error {
					route, err := b.fetchRoute(ctx, w.ID)
					if err != nil {
						record(EnrichRoute, rec.ID, err)
						return nil
					}
					rec.Route = route
					return nil
				})
			}
			if req.IncludeSteps {
				inner.Go(func() error {
					steps, err := b.fetchStepTotal(ctx, w.Start, w.End)
					if err != nil {
						record(EnrichSteps, rec.ID, err)
						return nil
					}
					rec.Steps = steps
					return nil
				})
			}
			return inner.Wait()
		})
	}
	if err := outer.Wait(); err != nil {
		// Enrichment goroutines never return errors; this is unreachable
		// unless the contract above changes.
		return nil, err
	}

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// fetchStepTotal sums the step samples recorded during a workout. A range
// with no step data yields nil, keeping "no data" distinct from a genuine
// zero total on the wire.
func (b *Bridge) fetchStepTotal(ctx context.Context, start, end time.Time) (*float64, error) {
	stats, err := b.store.CollectStatistics(ctx, healthstore.TypeStepCount, healthstore.UnitCount,
		[]healthstore.Interval{{Start: start, End: end}}, healthstore.OpSum)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, nil
	}
	return &stats[0].Value, nil
}

// fetchHeartRate returns the heart-rate samples recorded during a workout,
// in beats per minute.
func (b *Bridge) fetchHeartRate(ctx context.Context, start, end time.Time) ([]HeartRateSample, error) {
	samples, err := b.store.Samples(ctx, healthstore.TypeHeartRate, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]HeartRateSample, 0, len(samples))
	for _, s := range samples {
		bpm, err := healthstore.Convert(s, healthstore.UnitCountPerMin)
		if err != nil {
			return nil, err
		}
		out = append(out, HeartRateSample{Timestamp: Millis(s.Start), BPM: bpm})
	}
	return out, nil
}
