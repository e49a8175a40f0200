package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered collection to a file",
	Long: `Loads the collection for the given filters and writes it in the
requested format. Supported formats: csv, json, geojson, kml.`,
	RunE: runExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFormat, "format", "json", "output format (csv|json|geojson|kml)")
	f.StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")

	// Reuse the shared filter flags.
	f.StringVar(&flagStatus, "status", "", "filter by status (oil_spill|non_oil_spill)")
	f.StringSliceVar(&flagSeverities, "severity", nil, "filter by severity (repeatable)")
	f.StringVar(&flagSince, "since", "", "only detections at or after this RFC3339 time")
	f.StringVar(&flagUntil, "until", "", "only detections at or before this RFC3339 time")
	f.Float64Var(&flagLat, "lat", 0, "centre latitude for radius filtering")
	f.Float64Var(&flagLon, "lon", 0, "centre longitude for radius filtering")
	f.Float64Var(&flagRadiusKm, "radius-km", 0, "radius in km around --lat/--lon")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	writer, ok := exportWriters[exportFormat]
	if !ok {
		return fmt.Errorf("unknown export format %q", exportFormat)
	}

	filters, err := parseFilters()
	if err != nil {
		return err
	}
	if err := detectionView.Reload(cmd.Context(), filters); err != nil {
		return fmt.Errorf("loading detections: %w", err)
	}
	detections := detectionView.Detections()

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := writer(out, detections); err != nil {
		return err
	}
	if exportOutput != "" {
		cmd.Printf("Exported %d detections to %s.\n", len(detections), exportOutput)
	}
	return nil
}

var exportWriters = map[string]func(io.Writer, []domain.Detection) error{
	"csv":     export.WriteCSV,
	"json":    export.WriteJSON,
	"geojson": export.WriteGeoJSON,
	"kml":     export.WriteKML,
}
