package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
	"github.com/tidemark-labs/spillview/internal/core/ports/driving"
	"github.com/tidemark-labs/spillview/internal/logger"
)

// Ensure DetectionService implements the view interface.
var _ driving.DetectionView = (*DetectionService)(nil)

// DetectionService maintains the authoritative in-memory collection of
// detection records. It supports filtered reload, optimistic
// single-record update and delete with reload-on-failure, and holds
// one long-lived subscription to the backing store's change feed for
// the whole service lifetime.
type DetectionService struct {
	repo      driven.DetectionRepository
	snapshots driven.SnapshotStore
	now       func() time.Time

	mu         sync.Mutex
	detections []domain.Detection
	filters    domain.SearchFilters
	state      driving.SyncState
	lastErr    error
	closed     bool

	// reloading suppresses parallel fetches; pending holds the most
	// recently requested filters to re-run once the in-flight fetch
	// settles.
	reloading bool
	pending   *domain.SearchFilters

	// localVersions is the per-record optimistic version floor.
	// Subscription events older than the floor for their id are
	// discarded so a slightly-stale event cannot overwrite an
	// in-flight optimistic update.
	localVersions map[string]time.Time

	// revision bumps on every collection change; stats are memoized
	// against it.
	revision  uint64
	stats     domain.Statistics
	statsRev  uint64
	statsSeen bool

	unsubscribe func()
}

// Option customises a DetectionService.
type Option func(*DetectionService)

// WithSnapshots enables the last-good-collection snapshot cache used
// as a cold-start fallback when the backing store is unreachable.
func WithSnapshots(store driven.SnapshotStore) Option {
	return func(s *DetectionService) { s.snapshots = store }
}

// WithClock sets the time source. Useful for testing versioning.
func WithClock(now func() time.Time) Option {
	return func(s *DetectionService) { s.now = now }
}

// New creates a detection service and establishes the single live
// subscription to the backing store's change feed. The subscription
// lives until Close; it is not re-established on filter changes.
func New(ctx context.Context, repo driven.DetectionRepository, opts ...Option) (*DetectionService, error) {
	s := &DetectionService{
		repo:          repo,
		now:           time.Now,
		state:         driving.StateIdle,
		localVersions: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}

	events, cancel, err := repo.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to change feed: %w", err)
	}
	s.unsubscribe = cancel

	go func() {
		for ev := range events {
			s.applyEvent(ev)
		}
	}()

	return s, nil
}

// Close tears down the live subscription. Any event or late network
// result arriving afterwards is a no-op.
func (s *DetectionService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return nil
}

// Reload fetches the collection for the given filters. Every filter
// field the store can evaluate is pushed down; radius-based location
// filtering is applied here with a great-circle distance check against
// the fetched page. Results are applied atomically. A reload already
// in flight coalesces this request: the most recent filters are re-run
// once the current fetch settles.
func (s *DetectionService) Reload(ctx context.Context, filters domain.SearchFilters) error {
	if err := filters.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	if s.reloading {
		f := filters
		s.pending = &f
		s.mu.Unlock()
		logger.Debug("Reload in flight, coalescing filter change")
		return nil
	}
	s.reloading = true
	s.state = driving.StateLoading
	s.mu.Unlock()

	fetch := filters
	var lastErr error
	for {
		detections, err := s.repo.List(ctx, fetch)
		if err != nil {
			lastErr = fmt.Errorf("reload detections: %w", err)
			s.applyReloadFailure(ctx, lastErr)
		} else {
			lastErr = nil
			s.applyReloadSuccess(ctx, fetch, detections)
		}

		s.mu.Lock()
		if s.pending != nil {
			fetch = *s.pending
			s.pending = nil
			s.state = driving.StateLoading
			s.mu.Unlock()
			continue
		}
		s.reloading = false
		s.mu.Unlock()
		return lastErr
	}
}

// applyReloadSuccess applies a fetched page atomically: the visible
// collection never shows a partial mix of old and new records.
func (s *DetectionService) applyReloadSuccess(ctx context.Context, filters domain.SearchFilters, fetched []domain.Detection) {
	filtered := fetched
	if filters.Location != nil {
		filtered = make([]domain.Detection, 0, len(fetched))
		for i := range fetched {
			if filters.MatchesLocation(&fetched[i]) {
				filtered = append(filtered, fetched[i])
			}
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.detections = filtered
	s.filters = filters
	s.lastErr = nil
	s.state = driving.StateReady
	s.localVersions = make(map[string]time.Time)
	s.revision++
	s.mu.Unlock()

	logger.Debug("Reload applied: %d detections", len(filtered))

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, filtered); err != nil {
			logger.Warn("Failed to save snapshot: %v", err)
		}
	}
}

// applyReloadFailure records the error but keeps the previously loaded
// collection visible (stale-but-available). With nothing loaded yet it
// falls back to the snapshot cache so a cold start offline still shows
// the last known collection.
func (s *DetectionService) applyReloadFailure(ctx context.Context, reloadErr error) {
	s.mu.Lock()
	empty := len(s.detections) == 0
	s.lastErr = reloadErr
	if !empty {
		s.state = driving.StateReady
	} else {
		s.state = driving.StateIdle
	}
	s.mu.Unlock()

	logger.Warn("Reload failed, keeping previous collection: %v", reloadErr)

	if !empty || s.snapshots == nil {
		return
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil || len(snap) == 0 {
		return
	}

	s.mu.Lock()
	if !s.closed && len(s.detections) == 0 {
		s.detections = snap
		s.state = driving.StateReady
		s.revision++
		logger.Info("Loaded %d detections from snapshot cache", len(snap))
	}
	s.mu.Unlock()
}

// Update applies the patch optimistically to the in-memory record so
// the change is visible with zero latency, stamps a fresh UpdatedAt,
// then issues the remote write. On remote failure the optimistic
// change is not silently kept: the service reloads to resynchronise
// from the source of record and returns the error.
func (s *DetectionService) Update(ctx context.Context, id string, patch domain.DetectionPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return &domain.ValidationError{Field: "patch", Message: "no fields to update"}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("detection %s: %w", id, domain.ErrNotFound)
	}

	prev := s.detections[idx]
	stamp := s.now()
	// UpdatedAt must increase on every mutation even with a coarse
	// clock.
	if !stamp.After(prev.UpdatedAt) {
		stamp = prev.UpdatedAt.Add(time.Millisecond)
	}
	merged := patch.Apply(prev)
	merged.UpdatedAt = stamp
	s.detections[idx] = merged
	s.localVersions[id] = stamp
	s.revision++
	filters := s.filters
	s.mu.Unlock()

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		logger.Warn("Remote update of %s failed, resynchronising: %v", id, err)
		if rerr := s.Reload(ctx, filters); rerr != nil {
			logger.Warn("Resynchronising reload failed: %v", rerr)
		}
		return fmt.Errorf("update detection %s: %w", id, err)
	}

	if updated != nil {
		s.mu.Lock()
		if !s.closed {
			if i := s.indexOf(id); i >= 0 {
				s.detections[i] = *updated
				if updated.UpdatedAt.After(s.localVersions[id]) {
					s.localVersions[id] = updated.UpdatedAt
				}
				s.revision++
			}
		}
		s.mu.Unlock()
	}
	return nil
}

// Delete removes the record optimistically, then issues the remote
// delete with the same reconcile-on-failure semantics as Update.
func (s *DetectionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrStoreClosed
	}
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("detection %s: %w", id, domain.ErrNotFound)
	}

	s.detections = append(s.detections[:idx], s.detections[idx+1:]...)
	// Tombstone: a stale subscription update for the deleted id must
	// not resurrect it before the delete event arrives.
	s.localVersions[id] = s.now()
	s.revision++
	filters := s.filters
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		logger.Warn("Remote delete of %s failed, resynchronising: %v", id, err)
		if rerr := s.Reload(ctx, filters); rerr != nil {
			logger.Warn("Resynchronising reload failed: %v", rerr)
		}
		return fmt.Errorf("delete detection %s: %w", id, err)
	}
	return nil
}

// applyEvent merges one change-feed event into the collection. Events
// are applied in delivery order and unconditionally with respect to
// the active filters: the collection may transiently hold records
// outside the filter until the next explicit reload. Events older than
// the local optimistic version for their id are discarded.
func (s *DetectionService) applyEvent(ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	id := ev.Detection.ID
	switch ev.Type {
	case domain.ChangeInsert:
		if idx := s.indexOf(id); idx >= 0 {
			s.detections[idx] = ev.Detection
		} else {
			s.detections = append([]domain.Detection{ev.Detection}, s.detections...)
		}
		s.revision++

	case domain.ChangeUpdate:
		if floor, ok := s.localVersions[id]; ok && ev.Detection.UpdatedAt.Before(floor) {
			logger.Debug("Discarding stale change event for %s", id)
			return
		}
		if idx := s.indexOf(id); idx >= 0 {
			s.detections[idx] = ev.Detection
			s.localVersions[id] = ev.Detection.UpdatedAt
			s.revision++
		}

	case domain.ChangeDelete:
		if idx := s.indexOf(id); idx >= 0 {
			s.detections = append(s.detections[:idx], s.detections[idx+1:]...)
			s.revision++
		}
		delete(s.localVersions, id)
	}
}

// Detections returns a copy of the current collection, ordered
// descending by detection time as delivered by the store (live
// inserts are prepended).
func (s *DetectionService) Detections() []domain.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Detection, len(s.detections))
	copy(out, s.detections)
	return out
}

// Stats returns the derived aggregates, recomputed only when the
// collection has changed since the last call.
func (s *DetectionService) Stats() domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.statsSeen || s.statsRev != s.revision {
		s.stats = domain.ComputeStatistics(s.detections)
		s.statsRev = s.revision
		s.statsSeen = true
	}
	return s.stats
}

// State returns the current load state.
func (s *DetectionService) State() driving.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent failure, or nil. A reload error
// does not blank the collection; callers show the stale data with an
// error indicator.
func (s *DetectionService) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// indexOf returns the position of the record with the given id, or -1.
// Caller must hold the lock.
func (s *DetectionService) indexOf(id string) int {
	for i := range s.detections {
		if s.detections[i].ID == id {
			return i
		}
	}
	return -1
}
