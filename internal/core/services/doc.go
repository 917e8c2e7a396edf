// Package services implements the core business logic of quarry.
//
// Services implement the driving port interfaces and depend only on driven
// port interfaces, never on concrete adapters:
//
//   - IngestService: load, chunk, dedup, embed and index documents
//   - RetrievalService: similarity search and grounded answering
//   - TagSearchService: tag vocabulary matching with optional LLM ranking
//   - SessionManager: per-session bounded conversation history
package services
