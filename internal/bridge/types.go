// Package bridge implements the cross-platform health data contract on top
// of a healthstore.Store: permission mapping, type and unit resolution,
// latest-sample and aggregated queries, and the workout enrichment pipeline.
package bridge

import (
	"sort"

	"github.com/claude/healthbridge/internal/healthstore"
)

// DataType is a cross-platform measurement tag.
type DataType string

const (
	DataTypeSteps          DataType = "steps"
	DataTypeHeartRate      DataType = "heart-rate"
	DataTypeWeight         DataType = "weight"
	DataTypeHeight         DataType = "height"
	DataTypeHRV            DataType = "hrv"
	DataTypeDistance       DataType = "distance"
	DataTypeActiveCalories DataType = "active-calories"
	DataTypeBasalCalories  DataType = "basal-calories"
	DataTypeTotalCalories  DataType = "total-calories"
	DataTypeBloodPressure  DataType = "blood-pressure"
	DataTypeMindfulness    DataType = "mindfulness"
)

// AggregationStyle selects how raw samples of a type reduce into buckets.
type AggregationStyle string

const (
	// StyleCumulative sums samples per bucket (steps, calories, distance).
	StyleCumulative AggregationStyle = "cumulative"
	// StyleDiscreteAverage averages samples per bucket (heart rate, HRV).
	StyleDiscreteAverage AggregationStyle = "discreteAverage"
	// StyleLatestOnly takes the most recent sample per bucket (weight, height).
	StyleLatestOnly AggregationStyle = "latestOnly"
	// StyleComposite decomposes a correlation record (blood pressure).
	StyleComposite AggregationStyle = "compositeCorrelation"
	// StyleDuration sums session durations per local calendar day (mindfulness).
	StyleDuration AggregationStyle = "durationAccumulation"
)

// TypeBinding ties a data type to its native record type, canonical unit and
// aggregation style. SecondaryType, when set, names a second series merged
// into the primary (total calories = active + basal).
type TypeBinding struct {
	NativeType    string
	SecondaryType string
	Unit          string
	Style         AggregationStyle
}

// bindings is the single source of truth for type resolution. Every query
// path consults this table; units and styles are identical whether a type is
// reached through the latest-sample or the aggregated path.
var bindings = map[DataType]TypeBinding{
	DataTypeSteps:          {NativeType: healthstore.TypeStepCount, Unit: healthstore.UnitCount, Style: StyleCumulative},
	DataTypeHeartRate:      {NativeType: healthstore.TypeHeartRate, Unit: healthstore.UnitCountPerMin, Style: StyleDiscreteAverage},
	DataTypeWeight:         {NativeType: healthstore.TypeBodyMass, Unit: healthstore.UnitKilogram, Style: StyleLatestOnly},
	DataTypeHeight:         {NativeType: healthstore.TypeHeight, Unit: healthstore.UnitMeter, Style: StyleLatestOnly},
	DataTypeHRV:            {NativeType: healthstore.TypeHRV, Unit: healthstore.UnitMillisecond, Style: StyleDiscreteAverage},
	DataTypeDistance:       {NativeType: healthstore.TypeDistanceWalkingRunning, Unit: healthstore.UnitMeter, Style: StyleCumulative},
	DataTypeActiveCalories: {NativeType: healthstore.TypeActiveEnergy, Unit: healthstore.UnitKilocalorie, Style: StyleCumulative},
	DataTypeBasalCalories:  {NativeType: healthstore.TypeBasalEnergy, Unit: healthstore.UnitKilocalorie, Style: StyleCumulative},
	DataTypeTotalCalories: {
		NativeType:    healthstore.TypeActiveEnergy,
		SecondaryType: healthstore.TypeBasalEnergy,
		Unit:          healthstore.UnitKilocalorie,
		Style:         StyleCumulative,
	},
	DataTypeBloodPressure: {NativeType: healthstore.TypeBloodPressure, Unit: healthstore.UnitMMHg, Style: StyleComposite},
	DataTypeMindfulness:   {NativeType: healthstore.TypeMindfulSession, Unit: healthstore.UnitSecond, Style: StyleDuration},
}

// DataTypes returns every supported data-type tag in sorted order.
func DataTypes() []DataType {
	out := make([]DataType, 0, len(bindings))
	for dt := range bindings {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve returns the binding for a data type.
//
// Blood pressure and mindfulness still resolve to their table entry but with
// ErrHandledElsewhere, so callers branch into the composite or duration path
// instead of falling through to the generic quantity path. Unknown tags fail
// with ErrUnsupportedDataType.
func Resolve(dt DataType) (TypeBinding, error) {
	b, ok := bindings[dt]
	if !ok {
		return TypeBinding{}, ErrUnsupportedDataType
	}
	if b.Style == StyleComposite || b.Style == StyleDuration {
		return b, ErrHandledElsewhere
	}
	return b, nil
}

// statisticOp maps an aggregation style to the store reduction for the
// generic numeric path.
func statisticOp(style AggregationStyle) healthstore.StatisticOp {
	switch style {
	case StyleCumulative:
		return healthstore.OpSum
	case StyleLatestOnly:
		return healthstore.OpLatest
	default:
		return healthstore.OpAverage
	}
}
