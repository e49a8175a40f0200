// Package cli wires the cobra command tree. Commands consume core
// services through package-level variables injected by Configure so
// tests can swap in mocks.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
	"github.com/tidemark-labs/spillview/internal/core/ports/driving"
	"github.com/tidemark-labs/spillview/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the composition root.
var (
	detectionView   driving.DetectionView
	imagerySearcher driven.ImagerySearcher
	configStore     driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "spillview",
	Short: "Oil spill detection viewer",
	Long: `Spillview synchronises oil spill detections from a backing store,
looks up matching satellite imagery in an external catalog and exports
detection collections to common interchange formats.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the command tree needs.
type Services struct {
	DetectionView   driving.DetectionView
	ImagerySearcher driven.ImagerySearcher
	ConfigStore     driven.ConfigStore
	Version         string
}

// Configure injects services into the command tree. Must be called
// before Execute.
func Configure(s Services) {
	detectionView = s.DetectionView
	imagerySearcher = s.ImagerySearcher
	configStore = s.ConfigStore
	if s.Version != "" {
		version = s.Version
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
