// Package export serialises detection collections to the interchange
// formats the viewer supports: CSV, JSON, GeoJSON and KML. Every
// format is lossless with respect to the Detection entity so an
// exported file can stand in for the original records.
package export
