// Package driving defines the primary ports: the interfaces through
// which the CLI (or any other front end) drives the core services.
package driving
