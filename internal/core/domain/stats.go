package domain

// Statistics are derived aggregate counts over a detection
// collection. They are a pure function of the collection with no
// independent lifecycle.
type Statistics struct {
	Total          int `json:"total"`
	OilSpills      int `json:"oil_spills"`
	NonOilSpills   int `json:"non_oil_spills"`
	Verified       int `json:"verified"`
	CriticalSpills int `json:"critical_spills"`
}

// ComputeStatistics aggregates the collection. Critical spills are
// records that are both classified oil_spill and rated critical.
func ComputeStatistics(detections []Detection) Statistics {
	var s Statistics
	s.Total = len(detections)
	for i := range detections {
		d := &detections[i]
		switch d.Status {
		case StatusOilSpill:
			s.OilSpills++
		case StatusNonOilSpill:
			s.NonOilSpills++
		}
		if d.ValidationStatus != nil && *d.ValidationStatus == ValidationVerified {
			s.Verified++
		}
		if d.Status == StatusOilSpill && d.Severity != nil && *d.Severity == SeverityCritical {
			s.CriticalSpills++
		}
	}
	return s
}
