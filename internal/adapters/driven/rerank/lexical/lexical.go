// Package lexical provides an offline reranker that scores candidates by
// token overlap with the query.
package lexical

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/hask/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// ModelName identifies the scorer in logs and metrics.
const ModelName = "lexical-ochiai"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Reranker scores each document with the Ochiai coefficient between the
// query's and the document's lowercase token sets: |A∩B| / sqrt(|A||B|).
// There is no stemming and no term weighting.
type Reranker struct{}

// New creates a lexical reranker.
func New() *Reranker {
	return &Reranker{}
}

// Rerank scores every document. Hits are returned in input order.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string) ([]driven.RerankHit, error) {
	qset := tokenSet(query)
	hits := make([]driven.RerankHit, len(documents))
	for i, doc := range documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits[i] = driven.RerankHit{Index: i, Score: ochiai(qset, doc)}
	}
	return hits, nil
}

// ModelName returns the scorer name.
func (r *Reranker) ModelName() string {
	return ModelName
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func ochiai(qset map[string]struct{}, text string) float64 {
	if len(qset) == 0 {
		return 0
	}
	dset := tokenSet(text)
	if len(dset) == 0 {
		return 0
	}
	inter := 0
	for t := range dset {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(dset)))
}
