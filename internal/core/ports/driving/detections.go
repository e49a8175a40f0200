package driving

import (
	"context"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// SyncState is the load state of the detection collection. An error
// is reported orthogonally via LastError and never discards a
// previously loaded collection.
type SyncState int

// Sync states.
const (
	StateIdle SyncState = iota
	StateLoading
	StateReady
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DetectionView is the single coherent read/write view over the
// detection collection that the rest of the application consumes.
type DetectionView interface {
	// Reload fetches the collection for the given filters. Concurrent
	// calls coalesce: the most recently requested filters are re-run
	// once the in-flight fetch settles.
	Reload(ctx context.Context, filters domain.SearchFilters) error

	// Update applies a partial change optimistically and then writes
	// it to the backing store. On remote failure the store reloads to
	// resynchronise and returns the error.
	Update(ctx context.Context, id string, patch domain.DetectionPatch) error

	// Delete removes a record with the same optimistic-then-reconcile
	// semantics as Update.
	Delete(ctx context.Context, id string) error

	// Detections returns the current ordered collection.
	Detections() []domain.Detection

	// Stats returns the derived aggregates for the current collection.
	Stats() domain.Statistics

	// State returns the current load state.
	State() SyncState

	// LastError returns the most recent failure, or nil.
	LastError() error

	// Close tears down the live subscription. Events arriving after
	// Close are no-ops.
	Close() error
}
