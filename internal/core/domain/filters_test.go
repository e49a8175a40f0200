package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilters_Validate(t *testing.T) {
	var empty SearchFilters
	require.NoError(t, empty.Validate())

	badStatus := Status("unsure")
	err := (&SearchFilters{Status: &badStatus}).Validate()
	assert.Error(t, err)

	err = (&SearchFilters{Severities: []Severity{"mild"}}).Validate()
	assert.Error(t, err)

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	err = (&SearchFilters{From: &from, To: &to}).Validate()
	assert.Error(t, err)

	err = (&SearchFilters{Location: &LocationFilter{
		Center:   Point{Latitude: 95},
		RadiusKm: 10,
	}}).Validate()
	assert.Error(t, err)

	err = (&SearchFilters{Location: &LocationFilter{
		Center:   Point{Latitude: 10, Longitude: 10},
		RadiusKm: 0,
	}}).Validate()
	assert.Error(t, err)
}

func TestSearchFilters_Matches_Status(t *testing.T) {
	d := validDetection()
	oil := StatusOilSpill
	nonOil := StatusNonOilSpill

	assert.True(t, (&SearchFilters{Status: &oil}).Matches(&d))
	assert.False(t, (&SearchFilters{Status: &nonOil}).Matches(&d))
}

func TestSearchFilters_Matches_Severity(t *testing.T) {
	d := validDetection() // severity high

	f := SearchFilters{Severities: []Severity{SeverityHigh, SeverityCritical}}
	assert.True(t, f.Matches(&d))

	f = SearchFilters{Severities: []Severity{SeverityLow}}
	assert.False(t, f.Matches(&d))

	// A record without severity never matches a severity filter.
	d.Severity = nil
	f = SearchFilters{Severities: []Severity{SeverityHigh}}
	assert.False(t, f.Matches(&d))
}

func TestSearchFilters_Matches_TimeWindow(t *testing.T) {
	d := validDetection() // detected 2026-03-10 14:30 UTC

	before := d.DetectedAt.Add(-time.Hour)
	after := d.DetectedAt.Add(time.Hour)

	assert.True(t, (&SearchFilters{From: &before, To: &after}).Matches(&d))
	assert.False(t, (&SearchFilters{From: &after}).Matches(&d))
	assert.False(t, (&SearchFilters{To: &before}).Matches(&d))

	// Bounds are inclusive.
	exact := d.DetectedAt
	assert.True(t, (&SearchFilters{From: &exact, To: &exact}).Matches(&d))
}

func TestSearchFilters_Matches_Text(t *testing.T) {
	d := validDetection()
	d.Notes = "Slick near SHIPPING lane"
	d.Imagery.CatalogProductID = "S1A-IW-GRDH-20260310"

	// Case-insensitive substring against notes.
	assert.True(t, (&SearchFilters{Text: "shipping"}).Matches(&d))
	// And against the catalog product id.
	assert.True(t, (&SearchFilters{Text: "s1a-iw"}).Matches(&d))
	assert.False(t, (&SearchFilters{Text: "pipeline"}).Matches(&d))
}

func TestSearchFilters_Matches_Tags(t *testing.T) {
	d := validDetection() // tags sentinel-1, priority

	assert.True(t, (&SearchFilters{Tags: []string{"priority"}}).Matches(&d))
	assert.True(t, (&SearchFilters{Tags: []string{"priority", "sentinel-1"}}).Matches(&d))
	assert.False(t, (&SearchFilters{Tags: []string{"priority", "archived"}}).Matches(&d))
}

func TestSearchFilters_MatchesLocation(t *testing.T) {
	d := validDetection() // 25.0343, -71.2847

	f := SearchFilters{Location: &LocationFilter{
		Center:   Point{Latitude: 25.0343, Longitude: -71.2847},
		RadiusKm: 1,
	}}
	assert.True(t, f.MatchesLocation(&d))

	// Roughly 111 km north of the detection.
	f.Location.Center.Latitude = 26.0343
	f.Location.RadiusKm = 50
	assert.False(t, f.MatchesLocation(&d))

	f.Location.RadiusKm = 120
	assert.True(t, f.MatchesLocation(&d))

	// No location filter matches everything.
	noLoc := SearchFilters{}
	assert.True(t, noLoc.MatchesLocation(&d))
}
