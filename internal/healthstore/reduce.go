package healthstore

import (
	"fmt"
	"time"
)

// StatisticOp selects the reduction applied to each bucket of a statistics
// collection.
type StatisticOp string

const (
	OpSum     StatisticOp = "sum"
	OpAverage StatisticOp = "avg"
	OpLatest  StatisticOp = "latest"
)

// ValidOp reports whether op is a supported reduction.
func ValidOp(op StatisticOp) bool {
	switch op {
	case OpSum, OpAverage, OpLatest:
		return true
	}
	return false
}

// ReduceIntoBuckets assigns samples to buckets by start time and reduces each
// bucket with op, converting every contributing sample to unit first.
//
// Buckets must be sorted and non-overlapping; a sample belongs to the bucket
// whose [Start, End) contains its start time. Buckets with no samples are
// omitted. This is the one reduction implementation shared by every store
// backend, so that bucket semantics cannot drift between them.
func ReduceIntoBuckets(samples []SampleRecord, unit string, buckets []Interval, op StatisticOp) ([]Statistic, error) {
	if !ValidOp(op) {
		return nil, fmt.Errorf("unsupported statistic op %q", op)
	}

	type acc struct {
		sum    float64
		count  int
		latest SampleRecord
		value  float64 // converted value of latest
	}
	accs := make(map[int]*acc)

	for _, s := range samples {
		idx := bucketIndex(buckets, s.Start)
		if idx < 0 {
			continue
		}
		v, err := Convert(s, unit)
		if err != nil {
			return nil, fmt.Errorf("reducing %s: %w", s.TypeID, err)
		}
		a := accs[idx]
		if a == nil {
			a = &acc{}
			accs[idx] = a
		}
		a.sum += v
		a.count++
		if a.count == 1 || s.Start.After(a.latest.Start) {
			a.latest = s
			a.value = v
		}
	}

	var out []Statistic
	for idx, b := range buckets {
		a, ok := accs[idx]
		if !ok {
			continue
		}
		st := Statistic{Start: b.Start, End: b.End, Unit: unit, Count: a.count}
		switch op {
		case OpSum:
			st.Value = a.sum
		case OpAverage:
			st.Value = a.sum / float64(a.count)
		case OpLatest:
			st.Value = a.value
		}
		out = append(out, st)
	}
	return out, nil
}

// bucketIndex finds the bucket containing t by binary search, or -1.
func bucketIndex(buckets []Interval, t time.Time) int {
	lo, hi := 0, len(buckets)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case buckets[mid].Contains(t):
			return mid
		case t.Before(buckets[mid].Start):
			hi = mid
		default:
			lo = mid + 1
		}
	}
	return -1
}
