package healthstore

import "fmt"

// Canonical unit strings used across the bridge.
const (
	UnitCount        = "count"
	UnitCountPerMin  = "count/min"
	UnitKilocalorie  = "kcal"
	UnitCalorie      = "cal"
	UnitMeter        = "m"
	UnitKilometer    = "km"
	UnitCentimeter   = "cm"
	UnitKilogram     = "kg"
	UnitGram         = "g"
	UnitPound        = "lb"
	UnitSecond       = "s"
	UnitMillisecond  = "ms"
	UnitMinute       = "min"
	UnitMMHg         = "mmHg"
	UnitPercent      = "%"
)

// scale maps a (from, to) unit pair to a multiplicative factor.
var scale = map[[2]string]float64{
	{UnitGram, UnitKilogram}:       0.001,
	{UnitKilogram, UnitGram}:       1000,
	{UnitPound, UnitKilogram}:      0.45359237,
	{UnitSecond, UnitMillisecond}:  1000,
	{UnitMillisecond, UnitSecond}:  0.001,
	{UnitMinute, UnitSecond}:       60,
	{UnitKilometer, UnitMeter}:     1000,
	{UnitMeter, UnitKilometer}:     0.001,
	{UnitCentimeter, UnitMeter}:    0.01,
	{UnitMeter, UnitCentimeter}:    100,
	{UnitCalorie, UnitKilocalorie}: 0.001,
	{UnitKilocalorie, UnitCalorie}: 1000,
}

// Convert returns the sample's value expressed in toUnit.
//
// Plain unit pairs convert by a fixed factor. Converting a raw count to a
// per-minute rate divides by the sample's duration: a record of 1 count over
// 1 second converts to 60 count/min. Unknown pairs are an error so silent
// misreads never reach callers.
func Convert(s SampleRecord, toUnit string) (float64, error) {
	if s.Unit == toUnit {
		return s.Value, nil
	}
	if f, ok := scale[[2]string{s.Unit, toUnit}]; ok {
		return s.Value * f, nil
	}
	if s.Unit == UnitCount && toUnit == UnitCountPerMin {
		d := s.Duration()
		if d <= 0 {
			return 0, fmt.Errorf("converting %q to %q: sample has no duration", s.Unit, toUnit)
		}
		return s.Value / d.Minutes(), nil
	}
	return 0, fmt.Errorf("no conversion from %q to %q", s.Unit, toUnit)
}
