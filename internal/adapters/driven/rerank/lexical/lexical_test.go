package lexical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_ScoresOverlap(t *testing.T) {
	docs := []string{
		"Bananas are yellow fruit.",
		"The stock market fell today.",
		"Yellow bananas, yellow BANANAS!",
	}
	hits, err := New().Rerank(context.Background(), "yellow bananas", docs)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	for i, h := range hits {
		assert.Equal(t, i, h.Index)
	}
	assert.Zero(t, hits[1].Score)
	assert.Greater(t, hits[2].Score, hits[0].Score)
	assert.InDelta(t, 1.0, hits[2].Score, 1e-9, "identical token sets score 1")
}

func TestRerank_CaseAndPunctuation(t *testing.T) {
	hits, err := New().Rerank(context.Background(), "GO's Channels", []string{"go's channels."})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestRerank_EmptyInputs(t *testing.T) {
	hits, err := New().Rerank(context.Background(), "", []string{"text"})
	require.NoError(t, err)
	assert.Zero(t, hits[0].Score)

	hits, err = New().Rerank(context.Background(), "query", []string{"", "..."})
	require.NoError(t, err)
	assert.Zero(t, hits[0].Score)
	assert.Zero(t, hits[1].Score)

	hits, err = New().Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRerank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Rerank(ctx, "q", []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelName(t *testing.T) {
	assert.Equal(t, ModelName, New().ModelName())
}
