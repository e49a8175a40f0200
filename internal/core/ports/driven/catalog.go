package driven

import (
	"context"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// TokenProvider supplies OAuth access tokens for catalog requests.
// The token itself never leaves the catalog client boundary except as
// an opaque bearer value on outbound requests.
type TokenProvider interface {
	// GetToken returns a valid access token, refreshing if needed.
	GetToken(ctx context.Context) (string, error)

	// Clear drops the cached token so the next GetToken refreshes
	// unconditionally. Used after an upstream 401 to recover from a
	// revoked token.
	Clear()
}

// ImagerySearch describes one product-family search: a centre point,
// a buffer radius and an inclusive time window.
type ImagerySearch struct {
	Center   domain.Point
	RadiusKm float64
	Start    time.Time
	End      time.Time

	// MaxCloudCover constrains optical products to at most this cloud
	// coverage percentage. Ignored for radar.
	MaxCloudCover *float64
}

// ImagerySearcher finds satellite imagery for a detection. Lookups are
// best-effort enrichment: a failed optical search never blocks radar
// results, and vice versa.
type ImagerySearcher interface {
	SearchRadar(ctx context.Context, params ImagerySearch) ([]domain.Product, error)
	SearchOptical(ctx context.Context, params ImagerySearch) ([]domain.Product, error)
	FindImagery(ctx context.Context, lat, lon float64, centerTime time.Time) (*domain.ImageryBundle, error)
}
