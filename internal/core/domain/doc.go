// Package domain defines the core business entities for Hask.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Page: A saved web page, keyed by its normalised URL
//   - Chunk: An embedded span of a page's text
//   - QueryResult: One ranked page returned to the user
//   - IngestReport: The outcome of one save
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
