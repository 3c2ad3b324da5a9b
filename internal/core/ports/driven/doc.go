// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - BlobStore: Raw upload bytes (filesystem or MinIO)
//   - DocumentStore: Documents, pages and chunks (SQLite)
//   - LexicalIndex: Derived full-text index (SQLite FTS5 or Bleve)
//   - Parser: Turns bytes into pages (PDF, text family)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, VectorIndex is also disabled.
//   - VectorIndex: Vector storage/search (chromem-go or Milvus). Retrieval falls back to
//     the lexical index when it is absent, empty, or failing.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, parser, or service package
package driven
