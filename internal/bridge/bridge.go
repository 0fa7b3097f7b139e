package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/healthbridge/internal/healthstore"
)

// Bridge implements the cross-platform health plugin contract over one
// backing store. It holds no state beyond its dependencies; every call is an
// independent, fresh pull from the store.
type Bridge struct {
	store  healthstore.Store
	writer healthstore.Writer // nil for read-only backends
	loc    *time.Location     // device-local time zone for day boundaries
	log    *slog.Logger
}

// New creates a Bridge. writer may be nil for read-only stores; loc nil
// means time.Local.
func New(store healthstore.Store, writer healthstore.Writer, loc *time.Location, log *slog.Logger) *Bridge {
	if loc == nil {
		loc = time.Local
	}
	return &Bridge{store: store, writer: writer, loc: loc, log: log}
}

// IsAvailable reports whether the backing health store is reachable.
func (b *Bridge) IsAvailable(ctx context.Context) (bool, error) {
	return b.store.Available(ctx)
}

// OpenSettings navigates to the store's permission settings surface.
func (b *Bridge) OpenSettings(ctx context.Context) error {
	if err := b.store.OpenSettings(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsUnavailable, err)
	}
	return nil
}
