// Package domain defines the core business entities for faersight.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CaseRecord: One adverse-event report with demographics, drugs, reactions and outcomes
//   - PatientProfile: The patient a request is made for
//   - Measure: An optional numeric value with an explicit absent state
//   - LiteratureRecord: A literature search hit used to ground narratives
//
// The unit Normalizer lives here too because every other component depends
// on it and it needs nothing beyond the standard library.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
