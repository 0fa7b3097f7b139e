package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/healthbridge/internal/bridge"
)

// latestTypes are the body metrics surfaced in the daily summary.
var latestTypes = []bridge.DataType{
	bridge.DataTypeWeight,
	bridge.DataTypeHeight,
	bridge.DataTypeHeartRate,
	bridge.DataTypeBloodPressure,
}

func (h *handlers) dailySummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	available, err := h.ds.IsAvailable(ctx)
	if err != nil {
		return nil, err
	}

	latest := map[string]*bridge.LatestSampleResult{}
	for _, dt := range latestTypes {
		sample, err := h.ds.LatestSample(ctx, dt)
		if err != nil {
			if !errors.Is(err, bridge.ErrNoSampleFound) {
				h.log.Warn("daily_summary: latest sample failed", "dataType", dt, "error", err)
			}
			continue
		}
		latest[string(dt)] = sample
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	totals := map[string][]bridge.AggregatedSample{}
	for _, dt := range []bridge.DataType{bridge.DataTypeSteps, bridge.DataTypeActiveCalories, bridge.DataTypeDistance} {
		samples, err := h.ds.QueryAggregated(ctx, today, tomorrow, dt, bridge.BucketDay)
		if err != nil {
			h.log.Warn("daily_summary: aggregate failed", "dataType", dt, "error", err)
			continue
		}
		totals[string(dt)] = samples
	}

	workouts, err := h.ds.QueryWorkouts(ctx, bridge.WorkoutsRequest{Start: today, End: tomorrow})
	if err != nil {
		h.log.Warn("daily_summary: workout query failed", "error", err)
	}

	summary := map[string]any{
		"date":         today.Format("2006-01-02"),
		"available":    available,
		"latest":       latest,
		"daily_totals": totals,
	}
	if workouts != nil {
		summary["todays_workouts"] = workouts.Workouts
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	res, err := h.ds.QueryWorkouts(ctx, bridge.WorkoutsRequest{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(res.Workouts)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
