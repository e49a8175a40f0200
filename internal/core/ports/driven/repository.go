package driven

import (
	"context"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// DetectionRepository is the backing store for detection records.
//
// List pushes down every filter field the store can evaluate
// server-side (status, severity/response/validation membership, date
// range, text match, tag containment) and returns the collection
// ordered descending by detection time. Radius filtering is not pushed
// down; the caller applies it to the returned page.
type DetectionRepository interface {
	List(ctx context.Context, filters domain.SearchFilters) ([]domain.Detection, error)
	Update(ctx context.Context, id string, patch domain.DetectionPatch) (*domain.Detection, error)
	Delete(ctx context.Context, id string) error

	// Subscribe opens the store's row-level change feed. The returned
	// cancel function tears the subscription down and closes the
	// channel. Events arrive in delivery order, which is not
	// guaranteed to match the store's commit order.
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, func(), error)
}

// SnapshotStore persists the last successfully loaded collection so a
// cold start with the backing store unreachable can still show stale
// data.
type SnapshotStore interface {
	Save(ctx context.Context, detections []domain.Detection) error
	Load(ctx context.Context) ([]domain.Detection, error)
}
