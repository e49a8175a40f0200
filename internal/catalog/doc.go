// Package catalog is the client for the external satellite-imagery
// catalog. It manages an OAuth2 client-credentials token, builds
// bounding-box search queries from a point and radius, and issues
// rate-limited, paginated searches for the radar and optical product
// families. Lookups are resilient to partial failure: one family's
// error degrades that family to an empty result instead of aborting
// the whole lookup.
package catalog
