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
//   - PageStore: Page and chunk persistence (SQLite, bbolt or memory)
//   - VectorIndex: Cosine nearest-neighbour search over chunk embeddings
//   - EmbeddingService: Turns text into vectors
//   - Chunker: Splits page content into bounded spans
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the query pipeline degrades gracefully:
//
//   - Reranker: Without it, vector order is final.
//   - Summarizer: Without it, cards show a truncated prefix.
//   - EmbeddingCache: Without it, every text is embedded by the provider.
//   - PromptStore: Without it, summarisers use built-in prompts.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
