package ingest

import (
	"strings"

	"github.com/claude/healthbridge/internal/healthstore"
)

// MetricShape describes the data point structure for a metric.
type MetricShape int

const (
	ShapeQty           MetricShape = iota // standard: {"qty": N}
	ShapeMinAvgMax                        // heart rate: {"Min": N, "Avg": N, "Max": N}
	ShapeBloodPressure                    // blood pressure: {"systolic": N, "diastolic": N}
	ShapeInterval                         // sessions: {"start": ..., "end": ...}
)

// metricBinding maps one HAE metric name to the stored record type. Unit is
// the unit the samples are recorded in; HAE payload units are informational
// and sometimes wrong, so the binding wins.
type metricBinding struct {
	TypeID string
	Unit   string
	Shape  MetricShape
}

// metricBindings is the accept list: metric names without an entry are
// rejected, mirroring the exporter's configurable metric set.
var metricBindings = map[string]metricBinding{
	"step_count":               {TypeID: healthstore.TypeStepCount, Unit: healthstore.UnitCount, Shape: ShapeQty},
	"heart_rate":               {TypeID: healthstore.TypeHeartRate, Unit: healthstore.UnitCountPerMin, Shape: ShapeMinAvgMax},
	"resting_heart_rate":       {TypeID: healthstore.TypeRestingHeartRate, Unit: healthstore.UnitCountPerMin, Shape: ShapeQty},
	"weight_body_mass":         {TypeID: healthstore.TypeBodyMass, Unit: healthstore.UnitKilogram, Shape: ShapeQty},
	"body_fat_percentage":      {TypeID: healthstore.TypeBodyFat, Unit: healthstore.UnitPercent, Shape: ShapeQty},
	"height":                   {TypeID: healthstore.TypeHeight, Unit: healthstore.UnitCentimeter, Shape: ShapeQty},
	"heart_rate_variability":   {TypeID: healthstore.TypeHRV, Unit: healthstore.UnitMillisecond, Shape: ShapeQty},
	"active_energy":            {TypeID: healthstore.TypeActiveEnergy, Unit: healthstore.UnitKilocalorie, Shape: ShapeQty},
	"basal_energy_burned":      {TypeID: healthstore.TypeBasalEnergy, Unit: healthstore.UnitKilocalorie, Shape: ShapeQty},
	"walking_running_distance": {TypeID: healthstore.TypeDistanceWalkingRunning, Unit: healthstore.UnitKilometer, Shape: ShapeQty},
	"cycling_distance":         {TypeID: healthstore.TypeDistanceCycling, Unit: healthstore.UnitKilometer, Shape: ShapeQty},
	"swimming_distance":        {TypeID: healthstore.TypeDistanceSwimming, Unit: healthstore.UnitMeter, Shape: ShapeQty},
	"blood_pressure":           {TypeID: healthstore.TypeBloodPressure, Unit: healthstore.UnitMMHg, Shape: ShapeBloodPressure},
	"mindful_minutes":          {TypeID: healthstore.TypeMindfulSession, Unit: healthstore.UnitMinute, Shape: ShapeInterval},
}

// ResolveMetric returns the binding for an HAE metric name.
func ResolveMetric(name string) (metricBinding, bool) {
	b, ok := metricBindings[name]
	return b, ok
}

// AcceptedMetrics returns the metric names the ingest path accepts.
func AcceptedMetrics() []string {
	names := make([]string, 0, len(metricBindings))
	for name := range metricBindings {
		names = append(names, name)
	}
	return names
}

// workoutTag normalizes an HAE workout name ("Outdoor Running",
// "Strength Training") to an activity tag usable with the activity table.
func workoutTag(name string) string {
	tag := strings.ToLower(strings.TrimSpace(name))
	tag = strings.TrimPrefix(tag, "outdoor ")
	tag = strings.TrimPrefix(tag, "indoor ")
	return strings.ReplaceAll(tag, " ", "-")
}
