package domain

import "time"

// Platform identifies the sensing modality of an imagery product.
type Platform string

// Platforms.
const (
	PlatformSAR     Platform = "sar"
	PlatformOptical Platform = "optical"
)

// Product is a single satellite-imagery catalog entry: one overpass of
// one sensor. Products are ephemeral; they live for one imagery lookup
// and are never cached across lookups.
type Product struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Platform        Platform  `json:"platform"`
	AcquisitionDate time.Time `json:"acquisition_date"`
	Footprint       string    `json:"footprint,omitempty"`
	PreviewURL      string    `json:"preview_url,omitempty"`
	DownloadURL     string    `json:"download_url,omitempty"`
	CloudCoverage   *float64  `json:"cloud_coverage,omitempty"`
}

// ImageryBundle combines the radar and optical search results for one
// lookup. Partial is set when one product family failed and returned
// no results; the other family's results are still usable.
type ImageryBundle struct {
	Radar   []Product `json:"radar"`
	Optical []Product `json:"optical"`
	Partial bool      `json:"partial"`
}
