package services

import (
	"context"
	"sync"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
)

// blockingRepo is a repository whose List blocks until released,
// making reload coalescing deterministic to test.
type blockingRepo struct {
	listStarted chan struct{}
	release     chan struct{}

	mu      sync.Mutex
	records []domain.Detection
	calls   []domain.SearchFilters
}

var _ driven.DetectionRepository = (*blockingRepo)(nil)

func newBlockingRepo() *blockingRepo {
	return &blockingRepo{
		listStarted: make(chan struct{}, 4),
		release:     make(chan struct{}),
	}
}

func (r *blockingRepo) seed(detections ...domain.Detection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, detections...)
}

func (r *blockingRepo) listCalls() []domain.SearchFilters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SearchFilters(nil), r.calls...)
}

func (r *blockingRepo) List(ctx context.Context, filters domain.SearchFilters) ([]domain.Detection, error) {
	r.mu.Lock()
	r.calls = append(r.calls, filters)
	r.mu.Unlock()

	r.listStarted <- struct{}{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Detection(nil), r.records...), nil
}

func (r *blockingRepo) Update(_ context.Context, _ string, _ domain.DetectionPatch) (*domain.Detection, error) {
	return nil, domain.ErrNotFound
}

func (r *blockingRepo) Delete(_ context.Context, _ string) error {
	return domain.ErrNotFound
}

func (r *blockingRepo) Subscribe(_ context.Context) (<-chan domain.ChangeEvent, func(), error) {
	ch := make(chan domain.ChangeEvent)
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }, nil
}
