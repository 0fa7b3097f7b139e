package bridge

import (
	"context"

	"github.com/claude/healthbridge/internal/healthstore"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RouteSample is one route point in a workout record.
type RouteSample struct {
	Timestamp Millis  `json:"timestamp"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Alt       float64 `json:"alt"`
}

// fetchRoute collects the full route of a workout. Segments are fetched
// concurrently; each segment's points keep their delivery order, and
// segments are concatenated in the order they finish, not re-sorted by
// time — callers needing strict time order must sort.
func (b *Bridge) fetchRoute(ctx context.Context, workoutID uuid.UUID) ([]RouteSample, error) {
	segments, err := b.store.RouteSegments(ctx, workoutID)
	if err != nil {
		return nil, err
	}

	// Single owner of the route buffer: segment goroutines hand completed
	// segments to this collector instead of appending shared memory.
	segCh := make(chan []RouteSample)
	done := make(chan []RouteSample, 1)
	go func() {
		var all []RouteSample
		for pts := range segCh {
			all = append(all, pts...)
		}
		done <- all
	}()

	g, ctx := errgroup.WithContext(ctx)
	for _, seg := range segments {
		g.Go(func() error {
			pts, err := b.collectSegment(ctx, seg.ID)
			if err != nil {
				return err
			}
			segCh <- pts
			return nil
		})
	}
	err = g.Wait()
	close(segCh)
	all := <-done
	if err != nil {
		return nil, err
	}
	return all, nil
}

// collectSegment drains one segment's point stream. Deliveries may arrive
// from arbitrary goroutines; a dedicated goroutine owns the buffer and is
// the only writer, so appends cannot be lost by construction.
func (b *Bridge) collectSegment(ctx context.Context, segmentID uuid.UUID) ([]RouteSample, error) {
	batches := make(chan []healthstore.RoutePoint)
	done := make(chan []RouteSample, 1)
	go func() {
		var pts []RouteSample
		for batch := range batches {
			for _, p := range batch {
				pts = append(pts, RouteSample{
					Timestamp: Millis(p.Time),
					Lat:       p.Latitude,
					Lng:       p.Longitude,
					Alt:       p.Altitude,
				})
			}
		}
		done <- pts
	}()

	err := b.store.StreamRoutePoints(ctx, segmentID, func(batch []healthstore.RoutePoint) {
		batches <- batch
	})
	close(batches)
	pts := <-done
	if err != nil {
		return nil, err
	}
	return pts, nil
}
