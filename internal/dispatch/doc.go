// Package dispatch routes decoded EBML elements to handlers.
//
// Ownership boundary:
// - entry registration and duplicate diagnostics
// - table finalization (ordering by identifier length, then value)
// - lookup by identifier and exact Kind, with a single default fallback
// - the declarative Case/Fallback registration surface
//
// Dispatch does not read streams, decode payloads or decide traversal.
// A Table is immutable once finalized and may be shared between goroutines.
package dispatch
