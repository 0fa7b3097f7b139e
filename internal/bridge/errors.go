package bridge

import "errors"

// Error taxonomy of the bridge. Input-validation errors are returned before
// any store call is issued; query errors wrap the store's cause.
var (
	// ErrUnsupportedDataType means the data-type tag has no binding.
	ErrUnsupportedDataType = errors.New("unsupported data type")

	// ErrHandledElsewhere is returned by Resolve for tags that must go
	// through a dedicated branch (composite correlation, duration
	// accumulation) instead of the generic quantity path.
	ErrHandledElsewhere = errors.New("data type requires a dedicated query path")

	// ErrInvalidBucket means the bucket granularity is not hour, day or week.
	ErrInvalidBucket = errors.New("invalid bucket")

	// ErrInvalidParameters means a request failed local validation.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrNoSampleFound means the query succeeded but returned no records.
	ErrNoSampleFound = errors.New("no sample found")

	// ErrIncompleteComposite means a correlation record exists but lacks a
	// required sub-sample.
	ErrIncompleteComposite = errors.New("incomplete composite sample")

	// ErrQueryFailed wraps a store error from a single-sample query.
	ErrQueryFailed = errors.New("query failed")

	// ErrAggregationFailed wraps a store error from an aggregation query.
	ErrAggregationFailed = errors.New("aggregation failed")

	// ErrSettingsUnavailable means no settings surface could be resolved.
	ErrSettingsUnavailable = errors.New("settings unavailable")
)
