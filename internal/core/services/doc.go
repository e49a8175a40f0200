// Package services contains the application core: the detection
// synchronisation service that keeps an in-memory collection
// consistent with the backing store, and nothing else. Services
// depend only on the ports, never on concrete adapters.
package services
