package healthstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store and Writer. It backs the "memory"
// database backend for development and is the test double for the bridge.
//
// Route point batches are kept as written; StreamRoutePoints delivers each
// batch from its own goroutine to exercise the caller's serialization, per
// the Store delivery contract.
type MemoryStore struct {
	mu           sync.Mutex
	available    bool
	grantOnAsk   bool
	settingsOK   bool
	samples      map[string][]SampleRecord
	correlations map[string][]CorrelationRecord
	workouts     []WorkoutSession
	segments     map[uuid.UUID][]RouteSegment
	points       map[uuid.UUID][][]RoutePoint
	auth         map[string]AuthorizationState

	// QueryErr, when set for a type ID, fails every read of that type.
	QueryErr map[string]error
	// StreamErr, when set for a segment ID, fails that segment's stream
	// after delivering nothing.
	StreamErr map[uuid.UUID]error
}

// NewMemoryStore returns an available store that grants authorization
// requests and has a settings surface.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		available:    true,
		grantOnAsk:   true,
		settingsOK:   true,
		samples:      map[string][]SampleRecord{},
		correlations: map[string][]CorrelationRecord{},
		segments:     map[uuid.UUID][]RouteSegment{},
		points:       map[uuid.UUID][][]RoutePoint{},
		auth:         map[string]AuthorizationState{},
		QueryErr:     map[string]error{},
		StreamErr:    map[uuid.UUID]error{},
	}
}

// SetAvailable controls what Available reports.
func (m *MemoryStore) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

// SetGrantOnAsk controls whether RequestAuthorization succeeds.
func (m *MemoryStore) SetGrantOnAsk(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grantOnAsk = v
}

// SetSettingsAvailable controls whether OpenSettings succeeds.
func (m *MemoryStore) SetSettingsAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settingsOK = v
}

// AddRoute attaches a route segment with the given point batches to a workout.
func (m *MemoryStore) AddRoute(workoutID uuid.UUID, start, end time.Time, batches ...[]RoutePoint) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg := RouteSegment{ID: uuid.New(), WorkoutID: workoutID, Start: start, End: end}
	m.segments[workoutID] = append(m.segments[workoutID], seg)
	m.points[seg.ID] = batches
	return seg.ID
}

func (m *MemoryStore) Available(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available, nil
}

func (m *MemoryStore) AuthorizationStatus(ctx context.Context, typeID string) (AuthorizationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.auth[typeID]; ok {
		return st, nil
	}
	return NotDetermined, nil
}

func (m *MemoryStore) RequestAuthorization(ctx context.Context, typeIDs []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.grantOnAsk {
		return false, nil
	}
	for _, id := range typeIDs {
		m.auth[id] = Authorized
	}
	return true, nil
}

func (m *MemoryStore) LatestSample(ctx context.Context, typeID string) (*SampleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueryErr[typeID]; err != nil {
		return nil, err
	}
	var latest *SampleRecord
	for i := range m.samples[typeID] {
		s := m.samples[typeID][i]
		if latest == nil || s.Start.After(latest.Start) {
			cp := s
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStore) Samples(ctx context.Context, typeID string, start, end time.Time) ([]SampleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueryErr[typeID]; err != nil {
		return nil, err
	}
	var out []SampleRecord
	for _, s := range m.samples[typeID] {
		if !s.Start.Before(start) && s.Start.Before(end) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryStore) LatestCorrelation(ctx context.Context, typeID string) (*CorrelationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueryErr[typeID]; err != nil {
		return nil, err
	}
	var latest *CorrelationRecord
	for i := range m.correlations[typeID] {
		c := m.correlations[typeID][i]
		if latest == nil || c.Start.After(latest.Start) {
			cp := c
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStore) CollectStatistics(ctx context.Context, typeID, unit string, buckets []Interval, op StatisticOp) ([]Statistic, error) {
	if len(buckets) == 0 {
		return nil, nil
	}
	samples, err := m.Samples(ctx, typeID, buckets[0].Start, buckets[len(buckets)-1].End)
	if err != nil {
		return nil, err
	}
	return ReduceIntoBuckets(samples, unit, buckets, op)
}

func (m *MemoryStore) WorkoutSessions(ctx context.Context, start, end time.Time) ([]WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueryErr[TypeWorkout]; err != nil {
		return nil, err
	}
	var out []WorkoutSession
	for _, w := range m.workouts {
		if !w.Start.Before(start) && w.Start.Before(end) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryStore) RouteSegments(ctx context.Context, workoutID uuid.UUID) ([]RouteSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueryErr[TypeWorkoutRoute]; err != nil {
		return nil, err
	}
	return append([]RouteSegment(nil), m.segments[workoutID]...), nil
}

func (m *MemoryStore) StreamRoutePoints(ctx context.Context, segmentID uuid.UUID, deliver func(batch []RoutePoint)) error {
	m.mu.Lock()
	err := m.StreamErr[segmentID]
	batches := m.points[segmentID]
	m.mu.Unlock()
	if err != nil {
		return err
	}

	// Deliver batches in order, each from a fresh goroutine: the contract
	// keeps delivery order but makes no promise about which goroutine fires
	// the callback.
	for _, b := range batches {
		done := make(chan struct{})
		go func(batch []RoutePoint) {
			deliver(batch)
			close(done)
		}(b)
		<-done
	}
	return nil
}

func (m *MemoryStore) OpenSettings(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.settingsOK {
		return ErrSettingsUnavailable
	}
	return nil
}

func (m *MemoryStore) InsertSamples(ctx context.Context, samples []SampleRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		m.samples[s.TypeID] = append(m.samples[s.TypeID], s)
	}
	return int64(len(samples)), nil
}

func (m *MemoryStore) InsertCorrelation(ctx context.Context, c CorrelationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.correlations[c.TypeID] = append(m.correlations[c.TypeID], c)
	return nil
}

func (m *MemoryStore) InsertWorkout(ctx context.Context, w WorkoutSession, heartRate []SampleRecord, route []RoutePoint) error {
	m.mu.Lock()
	m.workouts = append(m.workouts, w)
	for _, s := range heartRate {
		m.samples[s.TypeID] = append(m.samples[s.TypeID], s)
	}
	m.mu.Unlock()
	if len(route) > 0 {
		m.AddRoute(w.ID, w.Start, w.End, route)
	}
	return nil
}

func (m *MemoryStore) SetAuthorization(ctx context.Context, typeIDs []string, state AuthorizationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range typeIDs {
		m.auth[id] = state
	}
	return nil
}

// Compile-time checks.
var (
	_ Store  = (*MemoryStore)(nil)
	_ Writer = (*MemoryStore)(nil)
)
