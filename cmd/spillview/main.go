// Command spillview is the oil spill detection viewer CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tidemark-labs/spillview/internal/adapters/driven/config/file"
	"github.com/tidemark-labs/spillview/internal/adapters/driven/storage/memory"
	"github.com/tidemark-labs/spillview/internal/adapters/driven/storage/postgres"
	"github.com/tidemark-labs/spillview/internal/adapters/driven/storage/sqlite"
	"github.com/tidemark-labs/spillview/internal/adapters/driving/cli"
	"github.com/tidemark-labs/spillview/internal/catalog"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
	"github.com/tidemark-labs/spillview/internal/core/services"
	"github.com/tidemark-labs/spillview/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	ctx := context.Background()

	configStore, err := file.NewConfigStore(os.Getenv("SPILLVIEW_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("initialising config store: %w", err)
	}

	repo, cleanup, err := buildRepository(ctx, configStore)
	if err != nil {
		return fmt.Errorf("connecting to detection store: %w", err)
	}
	defer cleanup()

	var opts []services.Option
	snapshots, err := sqlite.NewSnapshotStore(os.Getenv("SPILLVIEW_DATA_DIR"))
	if err != nil {
		logger.Warn("snapshot cache unavailable: %v", err)
	} else {
		defer snapshots.Close()
		opts = append(opts, services.WithSnapshots(snapshots))
	}

	view, err := services.New(ctx, repo, opts...)
	if err != nil {
		return fmt.Errorf("starting detection service: %w", err)
	}
	defer view.Close()

	cli.Configure(cli.Services{
		DetectionView:   view,
		ImagerySearcher: buildCatalogClient(configStore),
		ConfigStore:     configStore,
		Version:         version,
	})

	return cli.Execute()
}

// buildRepository connects to the configured backing store. With no
// database configured it falls back to an empty in-memory store so
// read-only commands like config and imagery still work.
func buildRepository(ctx context.Context, cfg driven.ConfigStore) (driven.DetectionRepository, func(), error) {
	connStr := os.Getenv("SPILLVIEW_DATABASE_URL")
	if connStr == "" {
		connStr = cfg.GetString("database.url")
	}
	if connStr == "" {
		logger.Warn("no database configured, using empty in-memory store")
		return memory.NewRepository(), func() {}, nil
	}

	repo, err := postgres.New(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

// buildCatalogClient assembles the imagery catalog client from
// configuration, with environment variables taking precedence for the
// client credentials.
func buildCatalogClient(cfg driven.ConfigStore) *catalog.Client {
	clientID := os.Getenv("SPILLVIEW_CATALOG_CLIENT_ID")
	if clientID == "" {
		clientID = cfg.GetString("catalog.client_id")
	}
	clientSecret := os.Getenv("SPILLVIEW_CATALOG_CLIENT_SECRET")
	if clientSecret == "" {
		clientSecret = cfg.GetString("catalog.client_secret")
	}

	tokens := catalog.NewTokenCache(
		cfg.GetString("catalog.token_url"),
		clientID,
		clientSecret,
	)

	var maxCloud *float64
	if v := cfg.GetFloat("catalog.max_cloud_cover"); v > 0 {
		maxCloud = &v
	}

	return catalog.NewClient(catalog.Config{
		SearchURL:         cfg.GetString("catalog.search_url"),
		PreviewURL:        cfg.GetString("catalog.preview_url"),
		ProcessURL:        cfg.GetString("catalog.process_url"),
		RadarCollection:   cfg.GetString("catalog.radar_collection"),
		OpticalCollection: cfg.GetString("catalog.optical_collection"),
		MaxCloudCover:     maxCloud,
		PageSize:          cfg.GetInt("catalog.page_size"),
		MaxPages:          cfg.GetInt("catalog.max_pages"),
		WindowDays:        cfg.GetInt("catalog.window_days"),
		RadiusKm:          cfg.GetFloat("catalog.radius_km"),
	}, tokens)
}
