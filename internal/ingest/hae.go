package ingest

import (
	"encoding/json"
	"fmt"
	"time"
)

// HAETime handles the Health Auto Export date format: "2006-01-02 15:04:05 -0700".
// Also handles the date-only format "2006-01-02".
type HAETime struct {
	time.Time
}

const (
	haeTimeLayout     = "2006-01-02 15:04:05 -0700"
	haeDateOnlyLayout = "2006-01-02"
)

func (t *HAETime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.parse(s)
}

func (t HAETime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(haeTimeLayout))
}

func (t *HAETime) parse(s string) error {
	parsed, err := time.Parse(haeTimeLayout, s)
	if err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err2 := time.Parse(haeDateOnlyLayout, s)
	if err2 == nil {
		t.Time = parsed
		return nil
	}
	return fmt.Errorf("cannot parse HAE time %q: %w", s, err)
}

// Payload is the top-level Health Auto Export REST JSON structure.
type Payload struct {
	Data PayloadData `json:"data"`
}

// PayloadData contains the arrays of health data.
type PayloadData struct {
	Metrics  []Metric  `json:"metrics"`
	Workouts []Workout `json:"workouts"`
}

// Metric is a single metric entry with name, units, and data points. Data
// points stay raw until the metric's shape is known.
type Metric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

// QtyDataPoint is the standard metric data point.
type QtyDataPoint struct {
	Date HAETime `json:"date"`
	Qty  float64 `json:"qty"`
}

// MinAvgMaxDataPoint carries Min/Avg/Max fields (capitalized in HAE JSON).
type MinAvgMaxDataPoint struct {
	Date HAETime `json:"date"`
	Min  float64 `json:"Min"`
	Avg  float64 `json:"Avg"`
	Max  float64 `json:"Max"`
}

// BloodPressureDataPoint carries systolic/diastolic readings.
type BloodPressureDataPoint struct {
	Date      HAETime `json:"date"`
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// IntervalDataPoint carries an explicit start/end span (mindful sessions).
type IntervalDataPoint struct {
	Start HAETime `json:"start"`
	End   HAETime `json:"end"`
	Qty   float64 `json:"qty"`
}

// Workout is a workout entry from the REST API (Version 2).
type Workout struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Start    HAETime `json:"start"`
	End      HAETime `json:"end"`
	Duration float64 `json:"duration"`

	ActiveEnergyBurned *Quantity `json:"activeEnergyBurned,omitempty"`
	TotalEnergy        *Quantity `json:"totalEnergy,omitempty"`
	Distance           *Quantity `json:"distance,omitempty"`

	HeartRateData []WorkoutHRPoint `json:"heartRateData,omitempty"`
	Route         []WorkoutGPSPoint `json:"route,omitempty"`
}

// Quantity is the {"qty": N, "units": "..."} structure.
type Quantity struct {
	Qty   float64 `json:"qty"`
	Units string  `json:"units"`
}

// WorkoutHRPoint is a heart rate data point during a workout.
type WorkoutHRPoint struct {
	Date   HAETime `json:"date"`
	Min    float64 `json:"Min"`
	Avg    float64 `json:"Avg"`
	Max    float64 `json:"Max"`
	Source string  `json:"source"`
}

// WorkoutGPSPoint is a GPS point from a workout route.
type WorkoutGPSPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Timestamp HAETime `json:"timestamp"`
}
