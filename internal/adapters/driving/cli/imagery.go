package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

var imageryCmd = &cobra.Command{
	Use:   "imagery",
	Short: "Look up satellite imagery in the catalog",
}

var imageryFindCmd = &cobra.Command{
	Use:   "find",
	Short: "Find radar and optical imagery around a point in time",
	Long: `Searches the satellite catalog for radar and optical products whose
footprint covers the given point, within a time window centred on the
given time. The two product families are searched concurrently; if one
family fails the other is still reported.`,
	RunE: runImageryFind,
}

var (
	imgLat  float64
	imgLon  float64
	imgTime string
)

func init() {
	f := imageryFindCmd.Flags()
	f.Float64Var(&imgLat, "lat", 0, "centre latitude")
	f.Float64Var(&imgLon, "lon", 0, "centre longitude")
	f.StringVar(&imgTime, "time", "", "centre time, RFC3339 (default now)")
	_ = imageryFindCmd.MarkFlagRequired("lat")
	_ = imageryFindCmd.MarkFlagRequired("lon")

	imageryCmd.AddCommand(imageryFindCmd)
	rootCmd.AddCommand(imageryCmd)
}

func runImageryFind(cmd *cobra.Command, _ []string) error {
	if imagerySearcher == nil {
		return errors.New("catalog client not configured")
	}

	centerTime := time.Now().UTC()
	if imgTime != "" {
		t, err := time.Parse(time.RFC3339, imgTime)
		if err != nil {
			return fmt.Errorf("parsing --time: %w", err)
		}
		centerTime = t
	}

	bundle, err := imagerySearcher.FindImagery(cmd.Context(), imgLat, imgLon, centerTime)
	if err != nil {
		return fmt.Errorf("imagery lookup failed: %w", err)
	}

	cmd.Printf("Radar products (%d):\n", len(bundle.Radar))
	printProducts(cmd, bundle.Radar)
	cmd.Printf("Optical products (%d):\n", len(bundle.Optical))
	printProducts(cmd, bundle.Optical)

	if bundle.Partial {
		cmd.Println("Warning: one product family failed to load; results are partial.")
	}
	return nil
}

func printProducts(cmd *cobra.Command, products []domain.Product) {
	if len(products) == 0 {
		cmd.Println("  (none)")
		return
	}
	for i := range products {
		p := &products[i]
		line := fmt.Sprintf("  %s  %s  %s",
			p.AcquisitionDate.Format(time.RFC3339), p.ID, p.Title)
		if p.CloudCoverage != nil {
			line += fmt.Sprintf("  cloud %.0f%%", *p.CloudCoverage)
		}
		cmd.Println(line)
	}
}
