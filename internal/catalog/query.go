package catalog

import (
	"fmt"
	"math"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// kmPerDegreeLat is the approximate length of one degree of latitude
// in kilometres.
const kmPerDegreeLat = 111.32

// Query is the structured filter sent to the catalog search endpoint.
// The builder produces it; the client passes it on verbatim.
type Query struct {
	Collection string `json:"collection"`

	// Polygon is a closed five-point bounding polygon (first point
	// repeated last) in counter-clockwise order, [longitude, latitude]
	// pairs, matching the catalog's GeoJSON exterior-ring convention.
	Polygon [][2]float64 `json:"polygon"`

	// Start and End bound the content date, inclusive.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// MaxCloudCover is an optional attribute predicate (percentage).
	MaxCloudCover *float64 `json:"max_cloud_cover,omitempty"`

	Limit   int    `json:"limit"`
	SortKey string `json:"sort"`
}

// BoundingBox converts a radius in kilometres around a centre point to
// per-axis degree deltas. The longitude delta is corrected for
// meridian convergence so the box approximates a circle of the
// requested radius at all latitudes. Near the poles cos(lat) tends to
// zero and the longitude delta blows up; that singularity is a
// documented edge case, not handled specially.
func BoundingBox(center domain.Point, radiusKm float64) (latDelta, lonDelta float64) {
	latDelta = radiusKm / kmPerDegreeLat
	lonDelta = radiusKm / (kmPerDegreeLat * math.Cos(center.Latitude*math.Pi/180))
	return latDelta, lonDelta
}

// BuildQuery is a pure function turning a centre point, buffer radius
// and time window into a bounding-polygon search query. No I/O.
func BuildQuery(collection string, center domain.Point, radiusKm float64, start, end time.Time) (Query, error) {
	if err := center.Validate(); err != nil {
		return Query{}, err
	}
	if radiusKm <= 0 {
		return Query{}, &domain.ValidationError{Field: "radius_km", Message: fmt.Sprintf("%v must be positive", radiusKm)}
	}
	if end.Before(start) {
		return Query{}, &domain.ValidationError{Field: "end", Message: "time window ends before it starts"}
	}

	latDelta, lonDelta := BoundingBox(center, radiusKm)

	minLat := center.Latitude - latDelta
	maxLat := center.Latitude + latDelta
	minLon := center.Longitude - lonDelta
	maxLon := center.Longitude + lonDelta

	// Counter-clockwise exterior ring, closed: SW, SE, NE, NW, SW.
	polygon := [][2]float64{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}

	return Query{
		Collection: collection,
		Polygon:    polygon,
		Start:      start,
		End:        end,
		SortKey:    "acquisition_date desc",
	}, nil
}
