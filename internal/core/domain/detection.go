package domain

import (
	"fmt"
	"time"
)

// Status classifies a detection as an oil spill or not. It is set by
// the ingesting pipeline and never changes afterwards.
type Status string

// Detection statuses.
const (
	StatusOilSpill    Status = "oil_spill"
	StatusNonOilSpill Status = "non_oil_spill"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusOilSpill || s == StatusNonOilSpill
}

// Severity is the ordinal severity of a confirmed spill.
type Severity string

// Severities in ascending order.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Less reports whether s orders strictly below other.
func (s Severity) Less(other Severity) bool {
	return severityRank[s] < severityRank[other]
}

// ResponseStatus tracks the operational response to a spill.
type ResponseStatus string

// Response states in their usual progression.
const (
	ResponseNone       ResponseStatus = "none"
	ResponseMonitoring ResponseStatus = "monitoring"
	ResponseDispatched ResponseStatus = "dispatched"
	ResponseResponding ResponseStatus = "responding"
	ResponseContained  ResponseStatus = "contained"
	ResponseResolved   ResponseStatus = "resolved"
)

// Valid reports whether r is a known response status.
func (r ResponseStatus) Valid() bool {
	switch r {
	case ResponseNone, ResponseMonitoring, ResponseDispatched,
		ResponseResponding, ResponseContained, ResponseResolved:
		return true
	}
	return false
}

// ValidationStatus records operator review of a detection.
type ValidationStatus string

// Validation statuses.
const (
	ValidationUnverified    ValidationStatus = "unverified"
	ValidationVerified      ValidationStatus = "verified"
	ValidationFalsePositive ValidationStatus = "false_positive"
)

// Valid reports whether v is a known validation status.
func (v ValidationStatus) Valid() bool {
	switch v {
	case ValidationUnverified, ValidationVerified, ValidationFalsePositive:
		return true
	}
	return false
}

// Environmental holds optional sea-condition readings captured with a
// detection.
type Environmental struct {
	WindSpeedKts *float64 `json:"wind_speed_kts,omitempty"`
	SeaState     *int     `json:"sea_state,omitempty"`
}

// Imagery holds references to satellite imagery associated with a
// detection.
type Imagery struct {
	SARURL           string `json:"sar_url,omitempty"`
	OpticalURL       string `json:"optical_url,omitempty"`
	CatalogProductID string `json:"catalog_product_id,omitempty"`
}

// Detection is one recorded spill observation. Records are created by
// an external ingestion pipeline; the store reads, filters and mutates
// them but never invents or discards records on its own.
type Detection struct {
	ID               string            `json:"id"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Status           Status            `json:"status"`
	DetectedAt       time.Time         `json:"detected_at"`
	Confidence       *float64          `json:"confidence,omitempty"`
	Severity         *Severity         `json:"severity,omitempty"`
	AreaAffectedKm2  *float64          `json:"area_affected_km2,omitempty"`
	ResponseStatus   *ResponseStatus   `json:"response_status,omitempty"`
	ValidationStatus *ValidationStatus `json:"validation_status,omitempty"`
	Imagery          Imagery           `json:"imagery"`
	Environmental    Environmental     `json:"environmental"`
	Notes            string            `json:"notes,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	NewsLinks        []string          `json:"news_links,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Validate checks the detection's invariants. Invalid records are
// rejected at ingestion, not at the UI layer.
func (d *Detection) Validate() error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Message: "must not be empty"}
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: fmt.Sprintf("%v out of range [-90, 90]", d.Latitude)}
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: fmt.Sprintf("%v out of range [-180, 180]", d.Longitude)}
	}
	if !d.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", d.Status)}
	}
	if d.Confidence != nil && (*d.Confidence < 0 || *d.Confidence > 1) {
		return &ValidationError{Field: "confidence", Message: fmt.Sprintf("%v out of range [0, 1]", *d.Confidence)}
	}
	if d.Severity != nil && !d.Severity.Valid() {
		return &ValidationError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", *d.Severity)}
	}
	if d.AreaAffectedKm2 != nil && *d.AreaAffectedKm2 < 0 {
		return &ValidationError{Field: "area_affected_km2", Message: "must not be negative"}
	}
	if d.ResponseStatus != nil && !d.ResponseStatus.Valid() {
		return &ValidationError{Field: "response_status", Message: fmt.Sprintf("unknown response status %q", *d.ResponseStatus)}
	}
	if d.ValidationStatus != nil && !d.ValidationStatus.Valid() {
		return &ValidationError{Field: "validation_status", Message: fmt.Sprintf("unknown validation status %q", *d.ValidationStatus)}
	}
	return nil
}

// DetectionPatch is a partial update to a detection. Nil fields are
// left untouched. Status is deliberately absent: it is immutable once
// set by the ingesting source. Coordinates and detection time are
// likewise fixed by the ingestion pipeline.
type DetectionPatch struct {
	Severity         *Severity         `json:"severity,omitempty"`
	AreaAffectedKm2  *float64          `json:"area_affected_km2,omitempty"`
	ResponseStatus   *ResponseStatus   `json:"response_status,omitempty"`
	ValidationStatus *ValidationStatus `json:"validation_status,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
	Tags             *[]string         `json:"tags,omitempty"`
	NewsLinks        *[]string         `json:"news_links,omitempty"`
	Environmental    *Environmental    `json:"environmental,omitempty"`
	Imagery          *Imagery          `json:"imagery,omitempty"`
}

// Validate checks the patch fields that carry constraints.
func (p *DetectionPatch) Validate() error {
	if p.Severity != nil && !p.Severity.Valid() {
		return &ValidationError{Field: "severity", Message: fmt.Sprintf("unknown severity %q", *p.Severity)}
	}
	if p.AreaAffectedKm2 != nil && *p.AreaAffectedKm2 < 0 {
		return &ValidationError{Field: "area_affected_km2", Message: "must not be negative"}
	}
	if p.ResponseStatus != nil && !p.ResponseStatus.Valid() {
		return &ValidationError{Field: "response_status", Message: fmt.Sprintf("unknown response status %q", *p.ResponseStatus)}
	}
	if p.ValidationStatus != nil && !p.ValidationStatus.Valid() {
		return &ValidationError{Field: "validation_status", Message: fmt.Sprintf("unknown validation status %q", *p.ValidationStatus)}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p *DetectionPatch) IsEmpty() bool {
	return p.Severity == nil && p.AreaAffectedKm2 == nil &&
		p.ResponseStatus == nil && p.ValidationStatus == nil &&
		p.Notes == nil && p.Tags == nil && p.NewsLinks == nil &&
		p.Environmental == nil && p.Imagery == nil
}

// Apply merges the patch into a copy of d and returns it. UpdatedAt is
// not touched here; the caller stamps it so that optimistic updates
// and server-confirmed updates control their own versioning.
func (p *DetectionPatch) Apply(d Detection) Detection {
	if p.Severity != nil {
		sev := *p.Severity
		d.Severity = &sev
	}
	if p.AreaAffectedKm2 != nil {
		area := *p.AreaAffectedKm2
		d.AreaAffectedKm2 = &area
	}
	if p.ResponseStatus != nil {
		rs := *p.ResponseStatus
		d.ResponseStatus = &rs
	}
	if p.ValidationStatus != nil {
		vs := *p.ValidationStatus
		d.ValidationStatus = &vs
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.Tags != nil {
		d.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.NewsLinks != nil {
		d.NewsLinks = append([]string(nil), (*p.NewsLinks)...)
	}
	if p.Environmental != nil {
		d.Environmental = *p.Environmental
	}
	if p.Imagery != nil {
		d.Imagery = *p.Imagery
	}
	return d
}
