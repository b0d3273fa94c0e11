package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Page is a saved web page. URL is the normalised URL and the unique key.
type Page struct {
	// URL is the normalised URL.
	URL string

	// Title is the human-readable title.
	Title string

	// Content is the extracted page text.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// CreatedAt is when the page was first saved.
	CreatedAt time.Time

	// FetchedAt is when the page was last saved.
	FetchedAt time.Time
}

// Chunk is a bounded span of a page's text together with its embedding.
// Chunks are immutable; a re-saved page gets a fresh set.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// PageURL links to the parent Page.
	PageURL string

	// Position is the ordinal position within the page.
	Position int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// UpsertResult is returned by a page upsert.
type UpsertResult struct {
	// Page is the stored page after the write.
	Page *Page

	// Created is true when the page did not exist before.
	Created bool

	// ContentChanged is true when the stored content differs from the
	// previous revision. Always true for created pages.
	ContentChanged bool
}

// HashContent returns the hex SHA-256 of page content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
