package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
)

// Bucket is an aggregation granularity.
type Bucket string

const (
	BucketHour Bucket = "hour"
	BucketDay  Bucket = "day"
	BucketWeek Bucket = "week"
)

// AggregatedSample is one reduced bucket of an aggregated query.
type AggregatedSample struct {
	StartDate Millis   `json:"startDate"`
	EndDate   Millis   `json:"endDate"`
	Value     float64  `json:"value"`
	Systolic  *float64 `json:"systolic,omitempty"`
	Diastolic *float64 `json:"diastolic,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// QueryAggregated buckets the samples of a data type over [start, end) and
// reduces each bucket by the type's aggregation style. Buckets with no
// underlying samples are omitted, never zero-filled.
func (b *Bridge) QueryAggregated(ctx context.Context, start, end time.Time, dt DataType, bucket Bucket) ([]AggregatedSample, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: endDate must be after startDate", ErrInvalidParameters)
	}
	buckets, err := b.partition(start, end, bucket)
	if err != nil {
		return nil, err
	}

	binding, err := Resolve(dt)
	switch {
	case errors.Is(err, ErrHandledElsewhere):
		switch binding.Style {
		case StyleDuration:
			return b.aggregateDurations(ctx, binding, start, end)
		default:
			return b.aggregateBloodPressure(ctx, binding, buckets)
		}
	case err != nil:
		return nil, err
	}

	stats, err := b.store.CollectStatistics(ctx, binding.NativeType, binding.Unit, buckets, statisticOp(binding.Style))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	out := make([]AggregatedSample, 0, len(stats))
	for _, st := range stats {
		out = append(out, AggregatedSample{
			StartDate: Millis(st.Start),
			EndDate:   Millis(st.End),
			Value:     st.Value,
			Unit:      binding.Unit,
		})
	}

	// Derived series: add the secondary sums bucket-by-bucket, degrading to
	// the primary series alone when the secondary is unavailable.
	if binding.SecondaryType != "" {
		out, err = b.mergeSecondary(ctx, binding, buckets, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// mergeSecondary folds the secondary series of a derived binding into the
// primary buckets. A failing secondary query is logged and ignored; buckets
// holding only secondary data are added so the derived series stays complete.
func (b *Bridge) mergeSecondary(ctx context.Context, binding TypeBinding, buckets []healthstore.Interval, primary []AggregatedSample) ([]AggregatedSample, error) {
	stats, err := b.store.CollectStatistics(ctx, binding.SecondaryType, binding.Unit, buckets, healthstore.OpSum)
	if err != nil {
		b.log.Warn("secondary series unavailable, using primary only",
			"type", binding.SecondaryType, "error", err)
		return primary, nil
	}

	byStart := make(map[int64]int, len(primary))
	for i, s := range primary {
		byStart[s.StartDate.Time().UnixMilli()] = i
	}
	for _, st := range stats {
		if i, ok := byStart[st.Start.UnixMilli()]; ok {
			primary[i].Value += st.Value
			continue
		}
		primary = append(primary, AggregatedSample{
			StartDate: Millis(st.Start),
			EndDate:   Millis(st.End),
			Value:     st.Value,
			Unit:      binding.Unit,
		})
	}
	sort.Slice(primary, func(i, j int) bool {
		return primary[i].StartDate.Time().Before(primary[j].StartDate.Time())
	})
	return primary, nil
}

// aggregateBloodPressure averages systolic and diastolic per bucket. Value
// carries the systolic average; buckets lacking either side are omitted.
func (b *Bridge) aggregateBloodPressure(ctx context.Context, binding TypeBinding, buckets []healthstore.Interval) ([]AggregatedSample, error) {
	sys, err := b.store.CollectStatistics(ctx, healthstore.TypeBloodPressureSystolic, binding.Unit, buckets, healthstore.OpAverage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}
	dia, err := b.store.CollectStatistics(ctx, healthstore.TypeBloodPressureDiastolic, binding.Unit, buckets, healthstore.OpAverage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	diaByStart := make(map[int64]float64, len(dia))
	for _, st := range dia {
		diaByStart[st.Start.UnixMilli()] = st.Value
	}

	var out []AggregatedSample
	for _, st := range sys {
		d, ok := diaByStart[st.Start.UnixMilli()]
		if !ok {
			continue
		}
		s := st.Value
		out = append(out, AggregatedSample{
			StartDate: Millis(st.Start),
			EndDate:   Millis(st.End),
			Value:     s,
			Systolic:  &s,
			Diastolic: &d,
			Unit:      binding.Unit,
		})
	}
	return out, nil
}

// aggregateDurations implements the duration-accumulation path: fetch every
// qualifying session in range, group by the local calendar day of the
// session start, and sum session durations per day. Bucketing happens here
// because stores have no session-duration-per-day aggregate.
func (b *Bridge) aggregateDurations(ctx context.Context, binding TypeBinding, start, end time.Time) ([]AggregatedSample, error) {
	samples, err := b.store.Samples(ctx, binding.NativeType, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}

	perDay := map[time.Time]float64{}
	for _, s := range samples {
		day := startOfDay(s.Start.In(b.loc))
		perDay[day] += s.Duration().Seconds()
	}

	days := make([]time.Time, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]AggregatedSample, 0, len(days))
	for _, day := range days {
		out = append(out, AggregatedSample{
			StartDate: Millis(day),
			EndDate:   Millis(day.AddDate(0, 0, 1)),
			Value:     perDay[day],
			Unit:      binding.Unit,
		})
	}
	return out, nil
}

// sumRange runs a cumulative-sum query over one interval, equivalent to a
// one-bucket aggregation. Missing data sums to zero.
func (b *Bridge) sumRange(ctx context.Context, typeID, unit string, start, end time.Time) (float64, error) {
	stats, err := b.store.CollectStatistics(ctx, typeID, unit,
		[]healthstore.Interval{{Start: start, End: end}}, healthstore.OpSum)
	if err != nil {
		return 0, err
	}
	if len(stats) == 0 {
		return 0, nil
	}
	return stats[0].Value, nil
}

// partition splits [start, end) into contiguous, non-overlapping buckets.
//
// Day and week buckets align to local calendar-day starts: the first bucket
// begins at the local midnight at or before start, and every later boundary
// falls on a local midnight, so a repeated call returns identical
// boundaries and day buckets never drift into rolling 24h windows. Hour
// buckets align to the top of the hour containing start.
func (b *Bridge) partition(start, end time.Time, bucket Bucket) ([]healthstore.Interval, error) {
	var cur time.Time
	var next func(time.Time) time.Time

	switch bucket {
	case BucketHour:
		t := start.In(b.loc)
		cur = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, b.loc)
		next = func(t time.Time) time.Time { return t.Add(time.Hour) }
	case BucketDay:
		cur = startOfDay(start.In(b.loc))
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	case BucketWeek:
		cur = startOfDay(start.In(b.loc))
		next = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	default:
		return nil, ErrInvalidBucket
	}

	var out []healthstore.Interval
	for cur.Before(end) {
		n := next(cur)
		out = append(out, healthstore.Interval{Start: cur, End: n})
		cur = n
	}
	return out, nil
}

// startOfDay returns local midnight of t's calendar day. Calendar-aware so
// DST transitions keep boundaries on real midnights.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
