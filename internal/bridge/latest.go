package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/healthbridge/internal/healthstore"
)

// LatestSampleResult is the response of a latest-sample query. Value is set
// for quantity types; Systolic/Diastolic for blood pressure. EndTimestamp is
// present when the sample spans an interval.
type LatestSampleResult struct {
	Value        *float64       `json:"value,omitempty"`
	Systolic     *float64       `json:"systolic,omitempty"`
	Diastolic    *float64       `json:"diastolic,omitempty"`
	Timestamp    Millis         `json:"timestamp"`
	EndTimestamp *Millis        `json:"endTimestamp,omitempty"`
	Unit         string         `json:"unit"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// LatestSample returns the most recent sample of a data type converted to
// its canonical unit.
func (b *Bridge) LatestSample(ctx context.Context, dt DataType) (*LatestSampleResult, error) {
	binding, err := Resolve(dt)
	switch {
	case errors.Is(err, ErrHandledElsewhere):
		if dt == DataTypeBloodPressure {
			return b.latestBloodPressure(ctx, binding)
		}
		// Mindfulness sessions have no meaningful "latest value".
		return nil, ErrUnsupportedDataType
	case err != nil:
		return nil, err
	}

	s, err := b.store.LatestSample(ctx, binding.NativeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if s == nil {
		return nil, ErrNoSampleFound
	}

	value, err := healthstore.Convert(*s, binding.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	// Total calories layer the basal energy spent during the sample's span
	// on top of the active sample, falling back to active-only when basal
	// data is missing or unreadable.
	if binding.SecondaryType != "" && s.End.After(s.Start) {
		basal, err := b.sumRange(ctx, binding.SecondaryType, binding.Unit, s.Start, s.End)
		if err != nil {
			b.log.Warn("secondary series unavailable, using primary only",
				"dataType", dt, "type", binding.SecondaryType, "error", err)
		} else {
			value += basal
		}
	}

	res := &LatestSampleResult{
		Value:     &value,
		Timestamp: Millis(s.Start),
		Unit:      binding.Unit,
		Metadata:  s.Metadata,
	}
	if s.End.After(s.Start) {
		end := Millis(s.End)
		res.EndTimestamp = &end
	}
	return res, nil
}

// latestBloodPressure decomposes the most recent blood-pressure correlation
// into its systolic and diastolic components.
func (b *Bridge) latestBloodPressure(ctx context.Context, binding TypeBinding) (*LatestSampleResult, error) {
	corr, err := b.store.LatestCorrelation(ctx, binding.NativeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	if corr == nil {
		return nil, ErrNoSampleFound
	}

	sys := corr.Component(healthstore.TypeBloodPressureSystolic)
	dia := corr.Component(healthstore.TypeBloodPressureDiastolic)
	if sys == nil || dia == nil {
		return nil, ErrIncompleteComposite
	}

	sysVal, err := healthstore.Convert(*sys, binding.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	diaVal, err := healthstore.Convert(*dia, binding.Unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	return &LatestSampleResult{
		Systolic:  &sysVal,
		Diastolic: &diaVal,
		Timestamp: Millis(corr.Start),
		Unit:      binding.Unit,
	}, nil
}
