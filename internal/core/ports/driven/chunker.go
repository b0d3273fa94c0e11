package driven

// Chunker splits page content into ordered, bounded text spans.
// Implementations must be deterministic and return nothing for blank content.
type Chunker interface {
	Split(content string) []string
}
