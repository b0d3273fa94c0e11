// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The two pipelines are IngestService (save a page) and QueryService
// (answer a question). Both share the VectorIndex and EmbeddingService
// but are otherwise independent.
package services
