package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

var detectionsCmd = &cobra.Command{
	Use:   "detections",
	Short: "Query and mutate the detection collection",
}

var detectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detections matching the given filters",
	RunE:  runDetectionsList,
}

var detectionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics for the filtered collection",
	RunE:  runDetectionsStats,
}

var detectionsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update mutable fields of a detection",
	Long: `Applies a partial update to a detection. Only the flags you pass are
changed. Classification status, coordinates and detection time are set
by the ingestion pipeline and cannot be edited.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetectionsUpdate,
}

var detectionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a detection",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetectionsDelete,
}

var detectionsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the collection and print changes as they arrive",
	Long: `Loads the collection for the given filters and keeps following it,
printing a summary line whenever live updates change the collection.
Interrupt with Ctrl-C.`,
	RunE: runDetectionsWatch,
}

// Filter flags shared by list, stats and watch.
var (
	flagStatus     string
	flagSeverities []string
	flagResponses  []string
	flagValidation []string
	flagSince      string
	flagUntil      string
	flagLat        float64
	flagLon        float64
	flagRadiusKm   float64
	flagText       string
	flagTags       []string
)

// Update flags.
var (
	updSeverity   string
	updArea       float64
	updResponse   string
	updValidation string
	updNotes      string
	updTags       []string
	updNewsLinks  []string
	updSARURL     string
	updOpticalURL string
	updProductID  string
	updWindKts    float64
	updSeaState   int
)

func init() {
	for _, c := range []*cobra.Command{detectionsListCmd, detectionsStatsCmd, detectionsWatchCmd} {
		f := c.Flags()
		f.StringVar(&flagStatus, "status", "", "filter by status (oil_spill|non_oil_spill)")
		f.StringSliceVar(&flagSeverities, "severity", nil, "filter by severity (repeatable)")
		f.StringSliceVar(&flagResponses, "response", nil, "filter by response status (repeatable)")
		f.StringSliceVar(&flagValidation, "validation", nil, "filter by validation status (repeatable)")
		f.StringVar(&flagSince, "since", "", "only detections at or after this RFC3339 time")
		f.StringVar(&flagUntil, "until", "", "only detections at or before this RFC3339 time")
		f.Float64Var(&flagLat, "lat", 0, "centre latitude for radius filtering")
		f.Float64Var(&flagLon, "lon", 0, "centre longitude for radius filtering")
		f.Float64Var(&flagRadiusKm, "radius-km", 0, "radius in km around --lat/--lon")
		f.StringVar(&flagText, "text", "", "free-text match against notes and product ID")
		f.StringSliceVar(&flagTags, "tag", nil, "require tag (repeatable)")
	}

	uf := detectionsUpdateCmd.Flags()
	uf.StringVar(&updSeverity, "severity", "", "severity (low|medium|high|critical)")
	uf.Float64Var(&updArea, "area-km2", 0, "affected area in square km")
	uf.StringVar(&updResponse, "response", "", "response status")
	uf.StringVar(&updValidation, "validation", "", "validation status")
	uf.StringVar(&updNotes, "notes", "", "operator notes")
	uf.StringSliceVar(&updTags, "tags", nil, "replace the tag list")
	uf.StringSliceVar(&updNewsLinks, "news-links", nil, "replace the news link list")
	uf.StringVar(&updSARURL, "sar-url", "", "radar imagery URL")
	uf.StringVar(&updOpticalURL, "optical-url", "", "optical imagery URL")
	uf.StringVar(&updProductID, "product-id", "", "catalog product ID")
	uf.Float64Var(&updWindKts, "wind-kts", 0, "wind speed in knots")
	uf.IntVar(&updSeaState, "sea-state", 0, "sea state (0-9)")

	detectionsCmd.AddCommand(detectionsListCmd)
	detectionsCmd.AddCommand(detectionsStatsCmd)
	detectionsCmd.AddCommand(detectionsUpdateCmd)
	detectionsCmd.AddCommand(detectionsDeleteCmd)
	detectionsCmd.AddCommand(detectionsWatchCmd)
	rootCmd.AddCommand(detectionsCmd)
}

func runDetectionsList(cmd *cobra.Command, _ []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	filters, err := parseFilters()
	if err != nil {
		return err
	}

	if err := detectionView.Reload(cmd.Context(), filters); err != nil {
		return fmt.Errorf("loading detections: %w", err)
	}

	detections := detectionView.Detections()
	if len(detections) == 0 {
		cmd.Println("No detections match.")
		return nil
	}

	for i := range detections {
		printDetection(cmd, &detections[i])
	}
	cmd.Printf("\n%d detections.\n", len(detections))
	return nil
}

func runDetectionsStats(cmd *cobra.Command, _ []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	filters, err := parseFilters()
	if err != nil {
		return err
	}

	if err := detectionView.Reload(cmd.Context(), filters); err != nil {
		return fmt.Errorf("loading detections: %w", err)
	}

	printStats(cmd, detectionView.Stats())
	return nil
}

func runDetectionsUpdate(cmd *cobra.Command, args []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	patch, err := parsePatch(cmd)
	if err != nil {
		return err
	}

	if err := detectionView.Update(cmd.Context(), args[0], patch); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	cmd.Printf("Detection %s updated.\n", args[0])
	return nil
}

func runDetectionsDelete(cmd *cobra.Command, args []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	if err := detectionView.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Detection %s deleted.\n", args[0])
	return nil
}

func runDetectionsWatch(cmd *cobra.Command, _ []string) error {
	if detectionView == nil {
		return errors.New("detection service not configured")
	}

	filters, err := parseFilters()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := detectionView.Reload(ctx, filters); err != nil {
		return fmt.Errorf("loading detections: %w", err)
	}

	last := detectionView.Stats()
	lastCount := len(detectionView.Detections())
	cmd.Printf("Watching %d detections. Press Ctrl-C to stop.\n", lastCount)
	printStats(cmd, last)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nStopped.")
			return nil
		case <-ticker.C:
			stats := detectionView.Stats()
			count := len(detectionView.Detections())
			if stats != last || count != lastCount {
				cmd.Printf("[%s] collection changed (%d records)\n",
					time.Now().Format("15:04:05"), count)
				printStats(cmd, stats)
				last = stats
				lastCount = count
			}
			if err := detectionView.LastError(); err != nil {
				cmd.Printf("warning: %v\n", err)
			}
		}
	}
}

// parseFilters builds SearchFilters from the shared filter flags.
func parseFilters() (domain.SearchFilters, error) {
	var filters domain.SearchFilters

	if flagStatus != "" {
		status := domain.Status(flagStatus)
		filters.Status = &status
	}
	for _, s := range flagSeverities {
		filters.Severities = append(filters.Severities, domain.Severity(s))
	}
	for _, r := range flagResponses {
		filters.ResponseStatuses = append(filters.ResponseStatuses, domain.ResponseStatus(r))
	}
	for _, v := range flagValidation {
		filters.ValidationStatuses = append(filters.ValidationStatuses, domain.ValidationStatus(v))
	}

	if flagSince != "" {
		t, err := time.Parse(time.RFC3339, flagSince)
		if err != nil {
			return filters, fmt.Errorf("parsing --since: %w", err)
		}
		filters.From = &t
	}
	if flagUntil != "" {
		t, err := time.Parse(time.RFC3339, flagUntil)
		if err != nil {
			return filters, fmt.Errorf("parsing --until: %w", err)
		}
		filters.To = &t
	}

	if flagRadiusKm > 0 {
		filters.Location = &domain.LocationFilter{
			Center:   domain.Point{Latitude: flagLat, Longitude: flagLon},
			RadiusKm: flagRadiusKm,
		}
	}

	filters.Text = flagText
	filters.Tags = flagTags

	if err := filters.Validate(); err != nil {
		return filters, err
	}
	return filters, nil
}

// parsePatch builds a DetectionPatch from whichever update flags were
// actually passed.
func parsePatch(cmd *cobra.Command) (domain.DetectionPatch, error) {
	var patch domain.DetectionPatch
	flags := cmd.Flags()

	if flags.Changed("severity") {
		sev := domain.Severity(updSeverity)
		patch.Severity = &sev
	}
	if flags.Changed("area-km2") {
		area := updArea
		patch.AreaAffectedKm2 = &area
	}
	if flags.Changed("response") {
		rs := domain.ResponseStatus(updResponse)
		patch.ResponseStatus = &rs
	}
	if flags.Changed("validation") {
		vs := domain.ValidationStatus(updValidation)
		patch.ValidationStatus = &vs
	}
	if flags.Changed("notes") {
		notes := updNotes
		patch.Notes = &notes
	}
	if flags.Changed("tags") {
		tags := updTags
		patch.Tags = &tags
	}
	if flags.Changed("news-links") {
		links := updNewsLinks
		patch.NewsLinks = &links
	}
	if flags.Changed("sar-url") || flags.Changed("optical-url") || flags.Changed("product-id") {
		patch.Imagery = &domain.Imagery{
			SARURL:           updSARURL,
			OpticalURL:       updOpticalURL,
			CatalogProductID: updProductID,
		}
	}
	if flags.Changed("wind-kts") || flags.Changed("sea-state") {
		env := &domain.Environmental{}
		if flags.Changed("wind-kts") {
			wind := updWindKts
			env.WindSpeedKts = &wind
		}
		if flags.Changed("sea-state") {
			state := updSeaState
			env.SeaState = &state
		}
		patch.Environmental = env
	}

	if patch.IsEmpty() {
		return patch, errors.New("no update flags given")
	}
	if err := patch.Validate(); err != nil {
		return patch, err
	}
	return patch, nil
}

func printDetection(cmd *cobra.Command, d *domain.Detection) {
	line := fmt.Sprintf("%s  %-13s  %9.4f,%9.4f  %s",
		d.ID, d.Status, d.Latitude, d.Longitude,
		d.DetectedAt.Format(time.RFC3339))
	if d.Severity != nil {
		line += "  " + string(*d.Severity)
	}
	if d.ValidationStatus != nil {
		line += "  " + string(*d.ValidationStatus)
	}
	cmd.Println(line)
	if d.Notes != "" {
		cmd.Printf("    %s\n", d.Notes)
	}
	if len(d.Tags) > 0 {
		cmd.Printf("    tags: %s\n", strings.Join(d.Tags, ", "))
	}
}

func printStats(cmd *cobra.Command, stats domain.Statistics) {
	cmd.Printf("  total: %d  oil spills: %d  non spills: %d  verified: %d  critical: %d\n",
		stats.Total, stats.OilSpills, stats.NonOilSpills,
		stats.Verified, stats.CriticalSpills)
}
