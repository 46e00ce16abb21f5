// Package wildcard provides pattern matching over resource and action
// identifiers for callers of the permission engine.
//
// The engine itself treats identifiers as opaque, case-sensitive
// strings; wildcard semantics live entirely on the caller side. This
// package implements the conventional patterns for that layer:
//
//   - "*" matches any identifier
//   - "documents.*" matches any identifier under the "documents." prefix
//   - anything else matches only its exact string
//
// Filter applies patterns to a resolved permission matrix, which is how
// the HTTP handler narrows "what can this user do" responses.
package wildcard
