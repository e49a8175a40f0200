package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

func TestDetectionsList(t *testing.T) {
	oldView := detectionView
	mock := &mockDetectionView{detections: []domain.Detection{cliDetection("det-001")}}
	detectionView = mock
	defer func() { detectionView = oldView }()

	out, err := execute("detections", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "det-001")
	assert.Contains(t, out, "1 detections")
	require.Len(t, mock.reloadedWith, 1)
}

func TestDetectionsList_WithFilters(t *testing.T) {
	oldView := detectionView
	mock := &mockDetectionView{}
	detectionView = mock
	defer func() { detectionView = oldView }()

	out, err := execute("detections", "list",
		"--status", "oil_spill",
		"--severity", "high", "--severity", "critical",
		"--lat", "25.0343", "--lon", "-71.2847", "--radius-km", "50")

	require.NoError(t, err)
	assert.Contains(t, out, "No detections match.")

	require.Len(t, mock.reloadedWith, 1)
	filters := mock.reloadedWith[0]
	require.NotNil(t, filters.Status)
	assert.Equal(t, domain.StatusOilSpill, *filters.Status)
	assert.Equal(t, []domain.Severity{domain.SeverityHigh, domain.SeverityCritical}, filters.Severities)
	require.NotNil(t, filters.Location)
	assert.InDelta(t, 50, filters.Location.RadiusKm, 1e-9)
}

func TestDetectionsList_InvalidFilters(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{}
	defer func() { detectionView = oldView }()

	_, err := execute("detections", "list", "--status", "perhaps")

	require.Error(t, err)
}

func TestDetectionsList_NotConfigured(t *testing.T) {
	oldView := detectionView
	detectionView = nil
	defer func() { detectionView = oldView }()

	_, err := execute("detections", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestDetectionsUpdate(t *testing.T) {
	oldView := detectionView
	mock := &mockDetectionView{}
	detectionView = mock
	defer func() { detectionView = oldView }()

	out, err := execute("detections", "update", "det-001", "--severity", "critical")

	require.NoError(t, err)
	assert.Contains(t, out, "det-001 updated")
	assert.Equal(t, []string{"det-001"}, mock.updatedIDs)
}

func TestDetectionsUpdate_NoFlags(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{}
	defer func() { detectionView = oldView }()

	_, err := execute("detections", "update", "det-001")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no update flags")
}

func TestDetectionsDelete(t *testing.T) {
	oldView := detectionView
	mock := &mockDetectionView{}
	detectionView = mock
	defer func() { detectionView = oldView }()

	out, err := execute("detections", "delete", "det-001")

	require.NoError(t, err)
	assert.Contains(t, out, "det-001 deleted")
	assert.Equal(t, []string{"det-001"}, mock.deletedIDs)
}

func TestDetectionsStats(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{detections: []domain.Detection{
		cliDetection("det-001"),
		cliDetection("det-002"),
	}}
	defer func() { detectionView = oldView }()

	out, err := execute("detections", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "total: 2")
	assert.Contains(t, out, "oil spills: 2")
}
