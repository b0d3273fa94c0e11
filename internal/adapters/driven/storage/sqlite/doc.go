// Package sqlite provides a SQLite-based implementation of driven.PageStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Chunks reference their page with ON DELETE CASCADE, so deleting a page
// removes its chunks in the same statement.
//
// # Data Location
//
// By default, the database is stored at ~/.hask/data/pages.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
