// Package memory provides in-memory implementations of the storage
// ports, used in tests and as a reference for adapter behaviour.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
)

// Ensure Repository implements the interface.
var _ driven.DetectionRepository = (*Repository)(nil)

// Repository is an in-memory implementation of
// driven.DetectionRepository with a manually driven change feed.
type Repository struct {
	mu          sync.Mutex
	detections  map[string]domain.Detection
	subscribers map[string]chan domain.ChangeEvent

	// ListErr, UpdateErr and DeleteErr force the next matching call to
	// fail. Useful for exercising rollback paths.
	ListErr   error
	UpdateErr error
	DeleteErr error
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		detections:  make(map[string]domain.Detection),
		subscribers: make(map[string]chan domain.ChangeEvent),
	}
}

// Seed inserts records directly, bypassing validation and the change
// feed.
func (r *Repository) Seed(detections ...domain.Detection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range detections {
		r.detections[d.ID] = d
	}
}

// List returns detections matching the pushdown-able filter fields,
// ordered descending by detection time. Radius filtering is left to
// the caller, mirroring the real store's query surface.
func (r *Repository) List(_ context.Context, filters domain.SearchFilters) ([]domain.Detection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		err := r.ListErr
		return nil, err
	}

	var out []domain.Detection
	for _, d := range r.detections {
		d := d
		if filters.Matches(&d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out, nil
}

// Update applies the patch and stamps updated_at, returning the stored
// row.
func (r *Repository) Update(_ context.Context, id string, patch domain.DetectionPatch) (*domain.Detection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return nil, r.UpdateErr
	}

	d, ok := r.detections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	updated := patch.Apply(d)
	stamp := time.Now()
	if !stamp.After(d.UpdatedAt) {
		stamp = d.UpdatedAt.Add(time.Millisecond)
	}
	updated.UpdatedAt = stamp
	r.detections[id] = updated
	return &updated, nil
}

// Delete removes a record.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if _, ok := r.detections[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.detections, id)
	return nil
}

// Subscribe opens a change feed channel. Events are delivered via
// Emit.
func (r *Repository) Subscribe(_ context.Context) (<-chan domain.ChangeEvent, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan domain.ChangeEvent, 16)
	r.subscribers[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

// Emit pushes a change event to every subscriber, simulating the
// backing store's row-level notifications.
func (r *Repository) Emit(ev domain.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		ch <- ev
	}
}

// SubscriberCount returns the number of open subscriptions.
func (r *Repository) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory snapshot cache.
type SnapshotStore struct {
	mu       sync.Mutex
	snapshot []domain.Detection
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(_ context.Context, detections []domain.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append([]domain.Detection(nil), detections...)
	return nil
}

// Load returns the stored snapshot.
func (s *SnapshotStore) Load(_ context.Context) ([]domain.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Detection(nil), s.snapshot...), nil
}
