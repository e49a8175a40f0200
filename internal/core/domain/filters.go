package domain

import (
	"strings"
	"time"
)

// LocationFilter restricts results to a radius around a point. The
// backing store cannot push this down, so it is applied client-side
// with a great-circle distance check.
type LocationFilter struct {
	Center   Point   `json:"center"`
	RadiusKm float64 `json:"radius_km"`
}

// SearchFilters is the value object the filter UI hands to the
// detection service. The service consumes it read-only. Zero-valued
// fields mean "no constraint".
type SearchFilters struct {
	Status             *Status            `json:"status,omitempty"`
	Severities         []Severity         `json:"severities,omitempty"`
	ResponseStatuses   []ResponseStatus   `json:"response_statuses,omitempty"`
	ValidationStatuses []ValidationStatus `json:"validation_statuses,omitempty"`
	From               *time.Time         `json:"from,omitempty"`
	To                 *time.Time         `json:"to,omitempty"`
	Location           *LocationFilter    `json:"location,omitempty"`
	Text               string             `json:"text,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
}

// Validate rejects malformed filters before any network call.
func (f *SearchFilters) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status"}
	}
	for _, s := range f.Severities {
		if !s.Valid() {
			return &ValidationError{Field: "severities", Message: "unknown severity"}
		}
	}
	for _, r := range f.ResponseStatuses {
		if !r.Valid() {
			return &ValidationError{Field: "response_statuses", Message: "unknown response status"}
		}
	}
	for _, v := range f.ValidationStatuses {
		if !v.Valid() {
			return &ValidationError{Field: "validation_statuses", Message: "unknown validation status"}
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return &ValidationError{Field: "to", Message: "end of range before start"}
	}
	if f.Location != nil {
		if err := f.Location.Center.Validate(); err != nil {
			return err
		}
		if f.Location.RadiusKm <= 0 {
			return &ValidationError{Field: "location.radius_km", Message: "must be positive"}
		}
	}
	return nil
}

// MatchesLocation reports whether the detection falls inside the
// radius filter. A nil location filter matches everything.
func (f *SearchFilters) MatchesLocation(d *Detection) bool {
	if f.Location == nil {
		return true
	}
	dist := Haversine(f.Location.Center, Point{Latitude: d.Latitude, Longitude: d.Longitude})
	return dist <= f.Location.RadiusKm
}

// Matches reports whether the detection satisfies every pushdown-able
// filter field. The backing store evaluates the equivalent predicates
// server-side; this in-process version backs the memory adapter and
// optional strict re-filtering of live events.
func (f *SearchFilters) Matches(d *Detection) bool {
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if len(f.Severities) > 0 {
		if d.Severity == nil || !containsSeverity(f.Severities, *d.Severity) {
			return false
		}
	}
	if len(f.ResponseStatuses) > 0 {
		if d.ResponseStatus == nil || !containsResponse(f.ResponseStatuses, *d.ResponseStatus) {
			return false
		}
	}
	if len(f.ValidationStatuses) > 0 {
		if d.ValidationStatus == nil || !containsValidation(f.ValidationStatuses, *d.ValidationStatus) {
			return false
		}
	}
	if f.From != nil && d.DetectedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && d.DetectedAt.After(*f.To) {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		notes := strings.ToLower(d.Notes)
		product := strings.ToLower(d.Imagery.CatalogProductID)
		if !strings.Contains(notes, needle) && !strings.Contains(product, needle) {
			return false
		}
	}
	for _, tag := range f.Tags {
		if !containsString(d.Tags, tag) {
			return false
		}
	}
	return true
}

func containsSeverity(xs []Severity, v Severity) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsResponse(xs []ResponseStatus, v ResponseStatus) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsValidation(xs []ValidationStatus, v ValidationStatus) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
