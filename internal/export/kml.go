package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// KML icon styles keyed by detection status.
const (
	styleOilSpill    = "oilSpillStyle"
	styleNonOilSpill = "nonOilSpillStyle"

	iconOilSpill    = "http://maps.google.com/mapfiles/kml/paddle/red-circle.png"
	iconNonOilSpill = "http://maps.google.com/mapfiles/kml/paddle/grn-circle.png"
)

type kmlDocument struct {
	XMLName    xml.Name       `xml:"kml"`
	Namespace  string         `xml:"xmlns,attr"`
	Name       string         `xml:"Document>name"`
	Styles     []kmlStyle     `xml:"Document>Style"`
	Placemarks []kmlPlacemark `xml:"Document>Placemark"`
}

type kmlStyle struct {
	ID   string `xml:"id,attr"`
	Icon string `xml:"IconStyle>Icon>href"`
}

type kmlPlacemark struct {
	Name         string       `xml:"name"`
	Description  string       `xml:"description,omitempty"`
	StyleURL     string       `xml:"styleUrl"`
	TimeStamp    kmlTimeStamp `xml:"TimeStamp"`
	ExtendedData []kmlData    `xml:"ExtendedData>Data"`
	Point        kmlPoint     `xml:"Point"`
}

type kmlTimeStamp struct {
	When string `xml:"when"`
}

type kmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

// WriteKML writes the collection as a KML document with one placemark
// per detection. Icon styling is keyed by detection status and the
// placemark timestamp carries the detection time.
func WriteKML(w io.Writer, detections []domain.Detection) error {
	doc := kmlDocument{
		Namespace: "http://www.opengis.net/kml/2.2",
		Name:      "Oil Spill Detections",
		Styles: []kmlStyle{
			{ID: styleOilSpill, Icon: iconOilSpill},
			{ID: styleNonOilSpill, Icon: iconNonOilSpill},
		},
		Placemarks: make([]kmlPlacemark, 0, len(detections)),
	}

	for i := range detections {
		doc.Placemarks = append(doc.Placemarks, toPlacemark(&detections[i]))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing kml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding kml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing kml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toPlacemark(d *domain.Detection) kmlPlacemark {
	style := "#" + styleNonOilSpill
	if d.Status == domain.StatusOilSpill {
		style = "#" + styleOilSpill
	}

	return kmlPlacemark{
		Name:        d.ID,
		Description: d.Notes,
		StyleURL:    style,
		TimeStamp:   kmlTimeStamp{When: d.DetectedAt.Format(time.RFC3339)},
		ExtendedData: []kmlData{
			{Name: "status", Value: string(d.Status)},
			{Name: "confidence", Value: formatFloatPtr(d.Confidence)},
			{Name: "severity", Value: formatSeverity(d.Severity)},
			{Name: "area_affected_km2", Value: formatFloatPtr(d.AreaAffectedKm2)},
			{Name: "response_status", Value: formatResponse(d.ResponseStatus)},
			{Name: "validation_status", Value: formatValidation(d.ValidationStatus)},
			{Name: "sar_url", Value: d.Imagery.SARURL},
			{Name: "optical_url", Value: d.Imagery.OpticalURL},
			{Name: "catalog_product_id", Value: d.Imagery.CatalogProductID},
			{Name: "wind_speed_kts", Value: formatFloatPtr(d.Environmental.WindSpeedKts)},
			{Name: "sea_state", Value: formatIntPtr(d.Environmental.SeaState)},
			{Name: "tags", Value: strings.Join(d.Tags, ";")},
			{Name: "news_links", Value: strings.Join(d.NewsLinks, ";")},
			{Name: "created_at", Value: d.CreatedAt.Format(time.RFC3339)},
			{Name: "updated_at", Value: d.UpdatedAt.Format(time.RFC3339)},
		},
		Point: kmlPoint{
			Coordinates: fmt.Sprintf("%f,%f,0", d.Longitude, d.Latitude),
		},
	}
}
