// Package ebml owns the element vocabulary shared by readers and dispatchers.
//
// Ownership boundary:
// - interned element identifiers and their ordering
// - node type discriminants (Kind)
// - variable-length integer primitives
// - the Matroska element catalog
// - a streaming element reader and append-style writer helpers
//
// The package never decides what happens to a node once it is read;
// routing belongs to internal/dispatch.
package ebml
