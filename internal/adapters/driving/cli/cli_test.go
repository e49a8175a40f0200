package cli

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driving"
)

// mockDetectionView records calls and serves a canned collection.
type mockDetectionView struct {
	mu         sync.Mutex
	detections []domain.Detection
	reloadErr  error
	updateErr  error
	deleteErr  error

	reloadedWith []domain.SearchFilters
	updatedIDs   []string
	deletedIDs   []string
}

var _ driving.DetectionView = (*mockDetectionView)(nil)

func (m *mockDetectionView) Reload(_ context.Context, filters domain.SearchFilters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloadedWith = append(m.reloadedWith, filters)
	return m.reloadErr
}

func (m *mockDetectionView) Update(_ context.Context, id string, _ domain.DetectionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatedIDs = append(m.updatedIDs, id)
	return m.updateErr
}

func (m *mockDetectionView) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, id)
	return m.deleteErr
}

func (m *mockDetectionView) Detections() []domain.Detection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Detection(nil), m.detections...)
}

func (m *mockDetectionView) Stats() domain.Statistics {
	return domain.ComputeStatistics(m.Detections())
}

func (m *mockDetectionView) State() driving.SyncState { return driving.StateReady }
func (m *mockDetectionView) LastError() error         { return nil }
func (m *mockDetectionView) Close() error             { return nil }

func cliDetection(id string) domain.Detection {
	return domain.Detection{
		ID:         id,
		Latitude:   25.0343,
		Longitude:  -71.2847,
		Status:     domain.StatusOilSpill,
		DetectedAt: time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}
}

// execute runs the root command with the given args and captures
// output. Flag state is reset first so one test's flags cannot leak
// into the next.
func execute(args ...string) (string, error) {
	resetFlagState(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlagState zeroes the package-level flag variables and clears
// cobra's Changed markers on the whole command tree.
func resetFlagState(cmd *cobra.Command) {
	flagStatus, flagSince, flagUntil, flagText = "", "", "", ""
	flagSeverities, flagResponses, flagValidation, flagTags = nil, nil, nil, nil
	flagLat, flagLon, flagRadiusKm = 0, 0, 0

	updSeverity, updResponse, updValidation, updNotes = "", "", "", ""
	updSARURL, updOpticalURL, updProductID = "", "", ""
	updTags, updNewsLinks = nil, nil
	updArea, updWindKts = 0, 0
	updSeaState = 0

	exportFormat, exportOutput = "json", ""
	imgLat, imgLon = 0, 0
	imgTime = ""

	clearChanged(cmd)
}

func clearChanged(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, sub := range cmd.Commands() {
		clearChanged(sub)
	}
}
