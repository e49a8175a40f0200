package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
)

type mockImagerySearcher struct {
	bundle *domain.ImageryBundle
	err    error

	lastLat, lastLon float64
	lastTime         time.Time
}

var _ driven.ImagerySearcher = (*mockImagerySearcher)(nil)

func (m *mockImagerySearcher) SearchRadar(_ context.Context, _ driven.ImagerySearch) ([]domain.Product, error) {
	return nil, nil
}

func (m *mockImagerySearcher) SearchOptical(_ context.Context, _ driven.ImagerySearch) ([]domain.Product, error) {
	return nil, nil
}

func (m *mockImagerySearcher) FindImagery(_ context.Context, lat, lon float64, centerTime time.Time) (*domain.ImageryBundle, error) {
	m.lastLat, m.lastLon, m.lastTime = lat, lon, centerTime
	return m.bundle, m.err
}

func TestImageryFind(t *testing.T) {
	oldSearcher := imagerySearcher
	mock := &mockImagerySearcher{bundle: &domain.ImageryBundle{
		Radar: []domain.Product{{
			ID:              "S1A-001",
			Title:           "Radar scene",
			Platform:        domain.PlatformSAR,
			AcquisitionDate: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
		}},
	}}
	imagerySearcher = mock
	defer func() { imagerySearcher = oldSearcher }()

	out, err := execute("imagery", "find",
		"--lat", "25.0343", "--lon", "-71.2847",
		"--time", "2026-03-10T12:00:00Z")

	require.NoError(t, err)
	assert.Contains(t, out, "Radar products (1)")
	assert.Contains(t, out, "S1A-001")
	assert.Contains(t, out, "Optical products (0)")
	assert.NotContains(t, out, "partial")

	assert.InDelta(t, 25.0343, mock.lastLat, 1e-9)
	assert.InDelta(t, -71.2847, mock.lastLon, 1e-9)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), mock.lastTime)
}

func TestImageryFind_PartialWarning(t *testing.T) {
	oldSearcher := imagerySearcher
	imagerySearcher = &mockImagerySearcher{bundle: &domain.ImageryBundle{Partial: true}}
	defer func() { imagerySearcher = oldSearcher }()

	out, err := execute("imagery", "find", "--lat", "25", "--lon", "-71")

	require.NoError(t, err)
	assert.Contains(t, out, "results are partial")
}

func TestImageryFind_BadTime(t *testing.T) {
	oldSearcher := imagerySearcher
	imagerySearcher = &mockImagerySearcher{}
	defer func() { imagerySearcher = oldSearcher }()

	_, err := execute("imagery", "find", "--lat", "25", "--lon", "-71", "--time", "yesterday")

	require.Error(t, err)
}

func TestImageryFind_NotConfigured(t *testing.T) {
	oldSearcher := imagerySearcher
	imagerySearcher = nil
	defer func() { imagerySearcher = oldSearcher }()

	_, err := execute("imagery", "find", "--lat", "25", "--lon", "-71")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
