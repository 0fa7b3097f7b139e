// Package ingest converts Health Auto Export REST payloads into health
// store records.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	SamplesReceived int      `json:"samples_received"`
	SamplesInserted int64    `json:"samples_inserted"`
	SamplesSkipped  int64    `json:"samples_skipped"`
	SamplesRejected int      `json:"samples_rejected"`
	RejectedNames   []string `json:"rejected_names,omitempty"`

	WorkoutsReceived int `json:"workouts_received,omitempty"`
	WorkoutsInserted int `json:"workouts_inserted,omitempty"`

	Message string `json:"message,omitempty"`
}

// Provider processes Health Auto Export REST API payloads.
type Provider struct {
	writer healthstore.Writer
	log    *slog.Logger
}

// NewProvider creates a new HAE ingest provider.
func NewProvider(writer healthstore.Writer, log *slog.Logger) *Provider {
	return &Provider{writer: writer, log: log}
}

// Ingest processes an HAE JSON payload and stores accepted data.
func (p *Provider) Ingest(ctx context.Context, payload *Payload) (*Result, error) {
	result := &Result{}

	if len(payload.Data.Metrics) > 0 {
		if err := p.processMetrics(ctx, payload.Data.Metrics, result); err != nil {
			return result, fmt.Errorf("processing metrics: %w", err)
		}
	}
	if len(payload.Data.Workouts) > 0 {
		if err := p.processWorkouts(ctx, payload.Data.Workouts, result); err != nil {
			return result, fmt.Errorf("processing workouts: %w", err)
		}
	}

	if len(result.RejectedNames) > 0 {
		result.Message = fmt.Sprintf(
			"Some metrics were rejected because they are not in the accept list: %v.",
			result.RejectedNames)
	}
	return result, nil
}

func (p *Provider) processMetrics(ctx context.Context, metrics []Metric, result *Result) error {
	var samples []healthstore.SampleRecord
	rejectedSet := map[string]bool{}

	for _, m := range metrics {
		binding, ok := ResolveMetric(m.Name)
		if !ok {
			if !rejectedSet[m.Name] {
				result.RejectedNames = append(result.RejectedNames, m.Name)
				rejectedSet[m.Name] = true
			}
			result.SamplesRejected += len(m.Data)
			continue
		}

		for _, raw := range m.Data {
			result.SamplesReceived++

			if binding.Shape == ShapeBloodPressure {
				if err := p.ingestBloodPressure(ctx, binding, raw); err != nil {
					p.log.Warn("skipping data point", "metric", m.Name, "error", err)
				}
				continue
			}

			s, err := convertDataPoint(binding, raw)
			if err != nil {
				p.log.Warn("skipping data point", "metric", m.Name, "error", err)
				continue
			}
			samples = append(samples, *s)
		}
	}

	if len(samples) > 0 {
		inserted, err := p.writer.InsertSamples(ctx, samples)
		if err != nil {
			return fmt.Errorf("inserting samples: %w", err)
		}
		result.SamplesInserted = inserted
		result.SamplesSkipped = int64(len(samples)) - inserted
	}
	return nil
}

// convertDataPoint decodes one raw data point by the binding's shape.
func convertDataPoint(binding metricBinding, raw json.RawMessage) (*healthstore.SampleRecord, error) {
	s := &healthstore.SampleRecord{
		TypeID: binding.TypeID,
		Unit:   binding.Unit,
		Source: "Health Auto Export",
	}

	switch binding.Shape {
	case ShapeMinAvgMax:
		var dp MinAvgMaxDataPoint
		if err := json.Unmarshal(raw, &dp); err != nil {
			return nil, fmt.Errorf("parsing min/avg/max: %w", err)
		}
		s.Start, s.End = dp.Date.Time, dp.Date.Time
		s.Value = dp.Avg

	case ShapeInterval:
		var dp IntervalDataPoint
		if err := json.Unmarshal(raw, &dp); err != nil {
			return nil, fmt.Errorf("parsing interval: %w", err)
		}
		if !dp.End.Time.After(dp.Start.Time) {
			return nil, fmt.Errorf("interval end %v not after start %v", dp.End.Time, dp.Start.Time)
		}
		s.Start, s.End = dp.Start.Time, dp.End.Time
		s.Value = dp.Qty

	default: // ShapeQty
		var dp QtyDataPoint
		if err := json.Unmarshal(raw, &dp); err != nil {
			return nil, fmt.Errorf("parsing qty: %w", err)
		}
		s.Start, s.End = dp.Date.Time, dp.Date.Time
		s.Value = dp.Qty
	}
	return s, nil
}

func (p *Provider) ingestBloodPressure(ctx context.Context, binding metricBinding, raw json.RawMessage) error {
	var dp BloodPressureDataPoint
	if err := json.Unmarshal(raw, &dp); err != nil {
		return fmt.Errorf("parsing blood pressure: %w", err)
	}
	at := dp.Date.Time
	return p.writer.InsertCorrelation(ctx, healthstore.CorrelationRecord{
		TypeID: binding.TypeID,
		Start:  at,
		End:    at,
		Components: []healthstore.SampleRecord{
			{TypeID: healthstore.TypeBloodPressureSystolic, Start: at, End: at, Value: dp.Systolic, Unit: binding.Unit, Source: "Health Auto Export"},
			{TypeID: healthstore.TypeBloodPressureDiastolic, Start: at, End: at, Value: dp.Diastolic, Unit: binding.Unit, Source: "Health Auto Export"},
		},
	})
}

func (p *Provider) processWorkouts(ctx context.Context, workouts []Workout, result *Result) error {
	for _, w := range workouts {
		result.WorkoutsReceived++

		workoutID, err := uuid.Parse(w.ID)
		if err != nil {
			p.log.Warn("skipping workout: invalid UUID", "id", w.ID, "error", err)
			continue
		}

		session := healthstore.WorkoutSession{
			ID:           workoutID,
			ActivityCode: bridge.ActivityCode(workoutTag(w.Name)),
			Start:        w.Start.Time,
			End:          w.End.Time,
			DurationSec:  w.Duration,
			SourceName:   "Health Auto Export",
		}
		if w.ActiveEnergyBurned != nil {
			session.Calories = w.ActiveEnergyBurned.Qty
		} else if w.TotalEnergy != nil {
			session.Calories = w.TotalEnergy.Qty
		}
		if w.Distance != nil {
			session.Distance = distanceMeters(*w.Distance)
		}

		hr := make([]healthstore.SampleRecord, 0, len(w.HeartRateData))
		for _, point := range w.HeartRateData {
			hr = append(hr, healthstore.SampleRecord{
				TypeID: healthstore.TypeHeartRate,
				Start:  point.Date.Time,
				End:    point.Date.Time,
				Value:  point.Avg,
				Unit:   healthstore.UnitCountPerMin,
				Source: point.Source,
			})
		}

		route := make([]healthstore.RoutePoint, 0, len(w.Route))
		for _, gps := range w.Route {
			route = append(route, healthstore.RoutePoint{
				Time:      gps.Timestamp.Time,
				Latitude:  gps.Latitude,
				Longitude: gps.Longitude,
				Altitude:  gps.Altitude,
			})
		}

		if err := p.writer.InsertWorkout(ctx, session, hr, route); err != nil {
			return fmt.Errorf("inserting workout %s: %w", w.ID, err)
		}
		result.WorkoutsInserted++
	}
	return nil
}

// distanceMeters normalizes an HAE distance quantity to meters.
func distanceMeters(q Quantity) float64 {
	switch q.Units {
	case "km":
		return q.Qty * 1000
	case "mi":
		return q.Qty * 1609.344
	default:
		return q.Qty
	}
}
