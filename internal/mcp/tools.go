package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/healthbridge/internal/bridge"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetLatestSample = mcp.NewTool("get_latest_sample",
	mcp.WithDescription("Get the most recent sample of a data type, with its value, unit and timestamp. Blood pressure returns systolic and diastolic together."),
	mcp.WithString("dataType", mcp.Required(), mcp.Description("Data type tag (e.g. steps, heart-rate, weight, blood-pressure, mindfulness)")),
)

var toolQueryAggregated = mcp.NewTool("query_aggregated",
	mcp.WithDescription("Query time-bucketed aggregates of a data type. Cumulative types sum per bucket, discrete types average, body measurements take the latest value per bucket."),
	mcp.WithString("dataType", mcp.Required(), mcp.Description("Data type tag (e.g. steps, heart-rate, weight, total-calories)")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Bucket granularity. Defaults to 'day'."), mcp.Enum("hour", "day", "week")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Query workouts in a time range. Returns activity type, duration, calories and distance, optionally enriched with heart rate series, GPS route and step totals."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithBoolean("includeHeartRate", mcp.Description("Attach heart rate samples recorded during each workout")),
	mcp.WithBoolean("includeRoute", mcp.Description("Attach the GPS route of each workout")),
	mcp.WithBoolean("includeSteps", mcp.Description("Attach the step total of each workout")),
)

var toolCheckPermissions = mcp.NewTool("check_permissions",
	mcp.WithDescription("Check read-authorization states for permission tags. Returns one state (authorized, denied, notDetermined) per known tag."),
	mcp.WithString("permissions", mcp.Required(), mcp.Description("Comma-separated permission tags (e.g. READ_STEPS,READ_HEART_RATE,READ_WORKOUTS)")),
)

var toolListDataTypes = mcp.NewTool("list_data_types",
	mcp.WithDescription("List all queryable data type tags."),
)

// --- Tool handlers ---

func (h *handlers) getLatestSample(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dataType, err := req.RequireString("dataType")
	if err != nil {
		return mcp.NewToolResultError("dataType parameter is required"), nil
	}

	sample, err := h.ds.LatestSample(ctx, bridge.DataType(dataType))
	if err != nil {
		h.log.Error("mcp get_latest_sample", "dataType", dataType, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sample)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) queryAggregated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dataType, err := req.RequireString("dataType")
	if err != nil {
		return mcp.NewToolResultError("dataType parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	bucket := bridge.Bucket(req.GetString("bucket", "day"))

	samples, err := h.ds.QueryAggregated(ctx, start, end, bridge.DataType(dataType), bucket)
	if err != nil {
		h.log.Error("mcp query_aggregated", "dataType", dataType, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(samples)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	res, err := h.ds.QueryWorkouts(ctx, bridge.WorkoutsRequest{
		Start:            start,
		End:              end,
		IncludeHeartRate: req.GetBool("includeHeartRate", false),
		IncludeRoute:     req.GetBool("includeRoute", false),
		IncludeSteps:     req.GetBool("includeSteps", false),
	})
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) checkPermissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("permissions")
	if err != nil {
		return mcp.NewToolResultError("permissions parameter is required"), nil
	}

	var perms []bridge.Permission
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, bridge.Permission(p))
		}
	}
	if len(perms) == 0 {
		return mcp.NewToolResultError("permissions parameter is empty"), nil
	}

	states, err := h.ds.CheckPermissions(ctx, perms)
	if err != nil {
		h.log.Error("mcp check_permissions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(states)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listDataTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(bridge.DataTypes())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
