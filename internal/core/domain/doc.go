// Package domain defines the core business entities for Recall.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRef: One logical document in one source
//   - Segment: One parse unit produced by an extractor
//   - Chunk: A token-bounded span of document text
//   - IndexedVector: A persisted chunk embedding
//   - SyncPlan: The computed source-vs-index diff
//   - QueryResult: An answer with citations
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
