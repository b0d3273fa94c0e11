package domain

import "fmt"

// IngestStage is a state of the per-URL ingestion state machine.
type IngestStage string

// Ingestion stages in pipeline order.
const (
	StageReceived IngestStage = "received"
	StageDeduped  IngestStage = "deduped"
	StageChunked  IngestStage = "chunked"
	StageEmbedded IngestStage = "embedded"
	StageIndexed  IngestStage = "indexed"
)

// String returns the string representation.
func (s IngestStage) String() string {
	return string(s)
}

// SaveRequest is one page handed to the ingestion pipeline.
type SaveRequest struct {
	// URL is the page address as the browser saw it.
	URL string

	// Title is optional; an empty title keeps any stored title.
	Title string

	// Content is the already-extracted page text.
	Content string
}

// IngestReport describes a save that reached a successful terminal state.
type IngestReport struct {
	// Page is the stored page.
	Page *Page

	// Created is true for a first save, false for an update.
	Created bool

	// Stage is the terminal stage reached.
	Stage IngestStage

	// ChunksIndexed is the number of chunks added to the index.
	ChunksIndexed int

	// ChunksRemoved is the number of stale chunks dropped before re-chunking.
	ChunksRemoved int

	// Skipped is true when the content was unchanged and nothing was re-embedded.
	Skipped bool
}

// IngestError is the Failed(stage, reason) terminal state.
type IngestError struct {
	URL   string
	Stage IngestStage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s failed at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
