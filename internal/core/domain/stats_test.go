package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatistics(t *testing.T) {
	critical := SeverityCritical
	verified := ValidationVerified

	spillCritical := validDetection()
	spillCritical.Severity = &critical
	spillCritical.ValidationStatus = &verified

	spillPlain := validDetection()
	spillPlain.ID = "det-002"

	nonSpill := validDetection()
	nonSpill.ID = "det-003"
	nonSpill.Status = StatusNonOilSpill
	nonSpill.Severity = &critical // critical but not a spill

	stats := ComputeStatistics([]Detection{spillCritical, spillPlain, nonSpill})

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.OilSpills)
	assert.Equal(t, 1, stats.NonOilSpills)
	assert.Equal(t, 1, stats.Verified)
	assert.Equal(t, 1, stats.CriticalSpills)
}

func TestComputeStatistics_Empty(t *testing.T) {
	assert.Equal(t, Statistics{}, ComputeStatistics(nil))
}
