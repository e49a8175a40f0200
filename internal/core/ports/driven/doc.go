// Package driven defines the secondary ports: interfaces the core
// requires from infrastructure adapters (backing store, snapshot
// cache, catalog, configuration). Adapters implement these; the core
// only ever sees the interface.
package driven
