// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentSource: Lists and fetches documents from a place they live
//   - Extractor: Converts raw bytes into ordered text segments
//   - ExtractorRegistry: Selects the extractor for a MIME type
//   - Chunker: Splits segments into token-bounded overlapping chunks
//   - EmbeddingService: Generates vector embeddings
//   - IndexStore: Persists and searches indexed vectors
//   - GenerationService: Produces grounded answers
//   - TokenProvider: Supplies API credentials on demand
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, source, or extractor package
package driven
