package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

func TestExport_GeoJSONToFile(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{detections: []domain.Detection{cliDetection("det-001")}}
	defer func() { detectionView = oldView }()

	outPath := filepath.Join(t.TempDir(), "detections.geojson")
	out, err := execute("export", "--format", "geojson", "--output", outPath)

	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 detections")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")
	assert.Contains(t, string(data), "det-001")
}

func TestExport_CSVToStdout(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{detections: []domain.Detection{cliDetection("det-001")}}
	defer func() { detectionView = oldView }()

	out, err := execute("export", "--format", "csv")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,latitude,longitude"))
	assert.True(t, strings.HasPrefix(lines[1], "det-001,"))
}

func TestExport_UnknownFormat(t *testing.T) {
	oldView := detectionView
	detectionView = &mockDetectionView{}
	defer func() { detectionView = oldView }()

	_, err := execute("export", "--format", "shapefile")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export format")
}
