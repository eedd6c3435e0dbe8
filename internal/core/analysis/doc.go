// Package analysis holds the case selection, reaction aggregation and
// patient similarity engine.
//
// Every function is synchronous, deterministic and read-only over the
// slices it receives. Case records are shared between callers and are
// never modified here.
//
// # Import Rules
//
//   - Can Import: domain, golang.org/x/text
//   - Cannot Import: ports, services, adapters
package analysis
