// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion and retrieval to function:
//
//   - Ledger: relational persistence of documents and fragments, and the
//     content-hash dedup gate
//   - VectorIndex: append-only vector storage and similarity search
//   - EmbeddingService: generates vector embeddings
//   - LoaderRegistry: reads source files into raw segments
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SegmentationService: semantic chunking tier. Without it, the cascade
//     starts at the Q&A pattern tier.
//   - LLMService: answering and LLM-assisted tag ranking. Without it, tag
//     search uses the deterministic matcher and answering is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
