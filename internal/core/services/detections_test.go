package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/spillview/internal/adapters/driven/storage/memory"
	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driving"
)

func detection(id string, detectedAt time.Time) domain.Detection {
	return domain.Detection{
		ID:         id,
		Latitude:   25.0343,
		Longitude:  -71.2847,
		Status:     domain.StatusOilSpill,
		DetectedAt: detectedAt,
		CreatedAt:  detectedAt,
		UpdatedAt:  detectedAt,
	}
}

func newService(t *testing.T, repo *memory.Repository, opts ...Option) *DetectionService {
	t.Helper()
	svc, err := New(context.Background(), repo, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNew_SubscribesOnce(t *testing.T) {
	repo := memory.NewRepository()

	svc := newService(t, repo)

	assert.Equal(t, 1, repo.SubscriberCount())
	require.NoError(t, svc.Close())
	assert.Equal(t, 0, repo.SubscriberCount())
}

func TestReload_Success(t *testing.T) {
	repo := memory.NewRepository()
	older := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	repo.Seed(detection("old", older), detection("new", newer))

	svc := newService(t, repo)

	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	detections := svc.Detections()
	require.Len(t, detections, 2)
	assert.Equal(t, "new", detections[0].ID, "ordered descending by detection time")
	assert.Equal(t, "old", detections[1].ID)
	assert.Equal(t, driving.StateReady, svc.State())
	assert.NoError(t, svc.LastError())
}

func TestReload_LocationPostFilter(t *testing.T) {
	repo := memory.NewRepository()
	near := detection("near", time.Now())
	far := detection("far", time.Now())
	far.Latitude = 26.5 // ~160 km north
	repo.Seed(near, far)

	svc := newService(t, repo)

	filters := domain.SearchFilters{Location: &domain.LocationFilter{
		Center:   domain.Point{Latitude: 25.0343, Longitude: -71.2847},
		RadiusKm: 50,
	}}
	require.NoError(t, svc.Reload(context.Background(), filters))

	detections := svc.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, "near", detections[0].ID)
}

func TestReload_InvalidFilters(t *testing.T) {
	svc := newService(t, memory.NewRepository())

	bad := domain.Status("perhaps")
	err := svc.Reload(context.Background(), domain.SearchFilters{Status: &bad})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestReload_FailureKeepsStaleCollection(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	repo.ListErr = errors.New("store unreachable")
	err := svc.Reload(context.Background(), domain.SearchFilters{})

	require.Error(t, err)
	assert.Len(t, svc.Detections(), 1, "previous collection stays visible")
	assert.Equal(t, driving.StateReady, svc.State())
	assert.Error(t, svc.LastError())
}

func TestReload_ColdStartFallsBackToSnapshot(t *testing.T) {
	repo := memory.NewRepository()
	repo.ListErr = errors.New("store unreachable")

	snapshots := memory.NewSnapshotStore()
	require.NoError(t, snapshots.Save(context.Background(), []domain.Detection{
		detection("cached", time.Now()),
	}))

	svc := newService(t, repo, WithSnapshots(snapshots))

	err := svc.Reload(context.Background(), domain.SearchFilters{})

	require.Error(t, err, "the failure is still reported")
	detections := svc.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, "cached", detections[0].ID)
	assert.Equal(t, driving.StateReady, svc.State())
}

func TestReload_SavesSnapshotOnSuccess(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))
	snapshots := memory.NewSnapshotStore()

	svc := newService(t, repo, WithSnapshots(snapshots))
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	snap, err := snapshots.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "d1", snap[0].ID)
}

func TestUpdate_OptimisticThenConfirmed(t *testing.T) {
	repo := memory.NewRepository()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.Seed(detection("d1", base))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	sev := domain.SeverityCritical
	require.NoError(t, svc.Update(context.Background(), "d1", domain.DetectionPatch{Severity: &sev}))

	detections := svc.Detections()
	require.Len(t, detections, 1)
	require.NotNil(t, detections[0].Severity)
	assert.Equal(t, domain.SeverityCritical, *detections[0].Severity)
	assert.True(t, detections[0].UpdatedAt.After(base), "UpdatedAt must advance")
}

func TestUpdate_EmptyPatchRejected(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))
	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	err := svc.Update(context.Background(), "d1", domain.DetectionPatch{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestUpdate_UnknownID(t *testing.T) {
	svc := newService(t, memory.NewRepository())

	notes := "x"
	err := svc.Update(context.Background(), "ghost", domain.DetectionPatch{Notes: &notes})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdate_RemoteFailureResynchronises(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	repo.UpdateErr = errors.New("write refused")
	notes := "optimistic note"
	err := svc.Update(context.Background(), "d1", domain.DetectionPatch{Notes: &notes})

	require.Error(t, err)
	detections := svc.Detections()
	require.Len(t, detections, 1)
	assert.Empty(t, detections[0].Notes, "optimistic change rolled back by resync")
	assert.Equal(t, driving.StateReady, svc.State())
}

func TestDelete_OptimisticThenConfirmed(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()), detection("d2", time.Now().Add(time.Hour)))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	require.NoError(t, svc.Delete(context.Background(), "d1"))

	detections := svc.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, "d2", detections[0].ID)

	// Gone remotely too.
	rows, err := repo.List(context.Background(), domain.SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDelete_RemoteFailureResynchronises(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	repo.DeleteErr = errors.New("delete refused")
	err := svc.Delete(context.Background(), "d1")

	require.Error(t, err)
	assert.Len(t, svc.Detections(), 1, "record restored after resync")
}

func TestApplyEvent_InsertPrepends(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	repo.Emit(domain.ChangeEvent{
		Type:      domain.ChangeInsert,
		Detection: detection("live", time.Now().Add(time.Minute)),
	})

	require.Eventually(t, func() bool {
		return len(svc.Detections()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "live", svc.Detections()[0].ID, "live inserts are prepended")
}

func TestApplyEvent_DeleteRemoves(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	repo.Emit(domain.ChangeEvent{
		Type:      domain.ChangeDelete,
		Detection: domain.Detection{ID: "d1"},
	})

	require.Eventually(t, func() bool {
		return len(svc.Detections()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestApplyEvent_StaleUpdateDiscarded(t *testing.T) {
	repo := memory.NewRepository()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.Seed(detection("d1", base))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	// Local optimistic update establishes a version floor.
	notes := "fresh local note"
	require.NoError(t, svc.Update(context.Background(), "d1", domain.DetectionPatch{Notes: &notes}))

	// An event stamped before the floor must not clobber the update.
	stale := detection("d1", base)
	stale.Notes = "stale remote note"
	stale.UpdatedAt = base.Add(-time.Hour)
	repo.Emit(domain.ChangeEvent{Type: domain.ChangeUpdate, Detection: stale})

	// A newer event for another purpose proves the feed was drained.
	repo.Emit(domain.ChangeEvent{
		Type:      domain.ChangeInsert,
		Detection: detection("marker", time.Now()),
	})
	require.Eventually(t, func() bool {
		return len(svc.Detections()) == 2
	}, time.Second, 10*time.Millisecond)

	for _, d := range svc.Detections() {
		if d.ID == "d1" {
			assert.Equal(t, "fresh local note", d.Notes)
		}
	}
}

func TestApplyEvent_NewerUpdateApplied(t *testing.T) {
	repo := memory.NewRepository()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.Seed(detection("d1", base))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	updated := detection("d1", base)
	updated.Notes = "remote edit"
	updated.UpdatedAt = base.Add(time.Hour)
	repo.Emit(domain.ChangeEvent{Type: domain.ChangeUpdate, Detection: updated})

	require.Eventually(t, func() bool {
		d := svc.Detections()
		return len(d) == 1 && d[0].Notes == "remote edit"
	}, time.Second, 10*time.Millisecond)
}

func TestReload_CoalescesConcurrentRequests(t *testing.T) {
	repo := newBlockingRepo()
	repo.seed(detection("d1", time.Now()))

	svc, err := New(context.Background(), repo, WithClock(time.Now))
	require.NoError(t, err)
	defer svc.Close()

	// First reload blocks inside List.
	first := domain.SearchFilters{Text: "first"}
	done := make(chan error, 1)
	go func() { done <- svc.Reload(context.Background(), first) }()
	<-repo.listStarted

	// Second reload coalesces and returns immediately.
	second := domain.SearchFilters{Text: "second"}
	require.NoError(t, svc.Reload(context.Background(), second))

	// Let the first fetch finish; the pending filters re-run.
	repo.release <- struct{}{}
	<-repo.listStarted
	repo.release <- struct{}{}

	require.NoError(t, <-done)
	assert.Equal(t, []domain.SearchFilters{first, second}, repo.listCalls())
}

func TestClosedService_RejectsOperations(t *testing.T) {
	svc := newService(t, memory.NewRepository())
	require.NoError(t, svc.Close())

	err := svc.Reload(context.Background(), domain.SearchFilters{})
	assert.True(t, errors.Is(err, domain.ErrStoreClosed))

	notes := "x"
	err = svc.Update(context.Background(), "d1", domain.DetectionPatch{Notes: &notes})
	assert.True(t, errors.Is(err, domain.ErrStoreClosed))

	err = svc.Delete(context.Background(), "d1")
	assert.True(t, errors.Is(err, domain.ErrStoreClosed))

	// Close is idempotent.
	require.NoError(t, svc.Close())
}

func TestStats_TracksCollection(t *testing.T) {
	repo := memory.NewRepository()
	repo.Seed(detection("d1", time.Now()))

	svc := newService(t, repo)
	require.NoError(t, svc.Reload(context.Background(), domain.SearchFilters{}))

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.OilSpills)

	require.NoError(t, svc.Delete(context.Background(), "d1"))

	stats = svc.Stats()
	assert.Equal(t, 0, stats.Total)
}
