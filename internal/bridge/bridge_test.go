package bridge

import (
	"io"
	"log/slog"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
)

// newTestBridge wires a Bridge to a fresh in-memory store in the given
// location (UTC when nil).
func newTestBridge(loc *time.Location) (*Bridge, *healthstore.MemoryStore) {
	if loc == nil {
		loc = time.UTC
	}
	store := healthstore.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, store, loc, log), store
}
