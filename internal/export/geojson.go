package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// GeoJSON document structure. Geometry coordinates are ordered
// [longitude, latitude] per RFC 7946; every non-coordinate Detection
// field lives under the feature's properties.
type (
	// FeatureCollection is the top-level GeoJSON document.
	FeatureCollection struct {
		Type     string    `json:"type"`
		Features []Feature `json:"features"`
	}

	// Feature is a single detection rendered as a GeoJSON feature.
	Feature struct {
		Type       string          `json:"type"`
		Geometry   Geometry        `json:"geometry"`
		Properties json.RawMessage `json:"properties"`
	}

	// Geometry is a point geometry.
	Geometry struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}
)

// WriteGeoJSON writes the collection as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, detections []domain.Detection) error {
	fc := FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]Feature, 0, len(detections)),
	}

	for i := range detections {
		feature, err := toFeature(&detections[i])
		if err != nil {
			return err
		}
		fc.Features = append(fc.Features, feature)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	return nil
}

// ReadGeoJSON parses a FeatureCollection back into detections. The
// coordinate pair is restored into Latitude and Longitude; all other
// fields come from the feature properties.
func ReadGeoJSON(r io.Reader) ([]domain.Detection, error) {
	var fc FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected geojson type %q", fc.Type)
	}

	detections := make([]domain.Detection, 0, len(fc.Features))
	for i := range fc.Features {
		f := &fc.Features[i]
		var d domain.Detection
		if err := json.Unmarshal(f.Properties, &d); err != nil {
			return nil, fmt.Errorf("decoding feature properties: %w", err)
		}
		d.Longitude = f.Geometry.Coordinates[0]
		d.Latitude = f.Geometry.Coordinates[1]
		detections = append(detections, d)
	}
	return detections, nil
}

func toFeature(d *domain.Detection) (Feature, error) {
	// Marshal the whole record, then drop the coordinate fields from
	// properties since they live in the geometry.
	raw, err := json.Marshal(d)
	if err != nil {
		return Feature{}, fmt.Errorf("marshalling detection: %w", err)
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		return Feature{}, fmt.Errorf("flattening detection: %w", err)
	}
	delete(props, "latitude")
	delete(props, "longitude")

	properties, err := json.Marshal(props)
	if err != nil {
		return Feature{}, fmt.Errorf("marshalling properties: %w", err)
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: [2]float64{d.Longitude, d.Latitude},
		},
		Properties: properties,
	}, nil
}
