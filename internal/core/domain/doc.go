// Package domain contains the core business entities and rules for
// spillview: detection records, search filters, imagery products and
// the derived statistics over the detection collection.
//
// The domain layer has no dependencies on adapters or external
// services. Entities are plain structs; optional attributes use
// pointer fields so that "not recorded" is distinct from a zero value.
package domain
