package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
)

// csvHeader lists every flattened Detection field. Tag and news-link
// lists are joined with ";"; embedded commas in free text are handled
// by the csv writer's quoting.
var csvHeader = []string{
	"id", "latitude", "longitude", "status", "detected_at",
	"confidence", "severity", "area_affected_km2",
	"response_status", "validation_status",
	"sar_url", "optical_url", "catalog_product_id",
	"wind_speed_kts", "sea_state",
	"notes", "tags", "news_links",
	"created_at", "updated_at",
}

// WriteCSV writes the collection as CSV with a header row.
func WriteCSV(w io.Writer, detections []domain.Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range detections {
		if err := cw.Write(csvRow(&detections[i])); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(d *domain.Detection) []string {
	return []string{
		d.ID,
		strconv.FormatFloat(d.Latitude, 'f', -1, 64),
		strconv.FormatFloat(d.Longitude, 'f', -1, 64),
		string(d.Status),
		d.DetectedAt.Format(time.RFC3339),
		formatFloatPtr(d.Confidence),
		formatSeverity(d.Severity),
		formatFloatPtr(d.AreaAffectedKm2),
		formatResponse(d.ResponseStatus),
		formatValidation(d.ValidationStatus),
		d.Imagery.SARURL,
		d.Imagery.OpticalURL,
		d.Imagery.CatalogProductID,
		formatFloatPtr(d.Environmental.WindSpeedKts),
		formatIntPtr(d.Environmental.SeaState),
		d.Notes,
		strings.Join(d.Tags, ";"),
		strings.Join(d.NewsLinks, ";"),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	}
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatIntPtr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func formatSeverity(s *domain.Severity) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func formatResponse(r *domain.ResponseStatus) string {
	if r == nil {
		return ""
	}
	return string(*r)
}

func formatValidation(v *domain.ValidationStatus) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
