package mcp

import (
	"context"
	"time"

	"github.com/claude/healthbridge/internal/bridge"
	"github.com/claude/healthbridge/internal/healthstore"
)

// DataSource abstracts the data layer for MCP tools. Both *bridge.Bridge
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	IsAvailable(ctx context.Context) (bool, error)
	LatestSample(ctx context.Context, dt bridge.DataType) (*bridge.LatestSampleResult, error)
	QueryAggregated(ctx context.Context, start, end time.Time, dt bridge.DataType, bucket bridge.Bucket) ([]bridge.AggregatedSample, error)
	QueryWorkouts(ctx context.Context, req bridge.WorkoutsRequest) (*bridge.WorkoutsResult, error)
	CheckPermissions(ctx context.Context, perms []bridge.Permission) (map[bridge.Permission]healthstore.AuthorizationState, error)
}

// Compile-time check: *bridge.Bridge satisfies DataSource.
var _ DataSource = (*bridge.Bridge)(nil)
