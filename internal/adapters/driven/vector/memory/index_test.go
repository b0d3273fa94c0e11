package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hask/internal/core/domain"
)

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := New(0)

	require.NoError(t, idx.Add(ctx, "x", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "y", []float32{0, 1}))
	require.NoError(t, idx.Add(ctx, "xy", []float32{1, 1}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "x", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, "xy", hits[1].ChunkID)
	assert.InDelta(t, 0.7071, hits[1].Similarity, 1e-3)
	assert.Equal(t, "y", hits[2].ChunkID)
}

func TestIndex_SearchLimitsToK(t *testing.T) {
	ctx := context.Background()
	idx := New(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, idx.Add(ctx, id, []float32{1, 0}))
	}

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := New(0)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, idx.Add(ctx, id, []float32{0.5, 0.5}))
	}
	// Replacing keeps the original slot.
	require.NoError(t, idx.Add(ctx, "c", []float32{1, 1}))

	hits, err := idx.Search(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	ids := []string{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := New(0)
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 2, 3}))

	err := idx.Add(ctx, "b", []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	fixed := New(4)
	err = fixed.Add(ctx, "a", []float32{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_AddRejectsEmpty(t *testing.T) {
	idx := New(0)
	assert.ErrorIs(t, idx.Add(context.Background(), "a", nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.Add(context.Background(), "", []float32{1}), domain.ErrInvalidInput)
}

func TestIndex_CopiesInput(t *testing.T) {
	ctx := context.Background()
	idx := New(0)
	vec := []float32{1, 0}
	require.NoError(t, idx.Add(ctx, "a", vec))
	vec[0], vec[1] = 0, 1

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
}

func TestIndex_DeleteAndReset(t *testing.T) {
	ctx := context.Background()
	idx := New(0)
	require.NoError(t, idx.Add(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, "b", []float32{0, 1}))

	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "missing"))
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Reset(ctx))
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dimension())

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	require.NoError(t, idx.Add(ctx, "c", []float32{1, 0, 0}))
}

func TestIndex_ZeroVector(t *testing.T) {
	ctx := context.Background()
	idx := New(0)
	require.NoError(t, idx.Add(ctx, "zero", []float32{0, 0}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Similarity)
}

func TestIndex_ConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	idx := New(0)

	const (
		writers = 4
		readers = 4
		rounds  = 200
		dims    = 8
		k       = 5
	)
	vector := func(seed int) []float32 {
		v := make([]float32, dims)
		v[0] = 1
		for j := 1; j < dims; j++ {
			v[j] = float32((seed*31+j*7)%5 - 2)
		}
		return v
	}

	var wg sync.WaitGroup
	errs := make(chan error, (2*writers+(k+1)*readers)*rounds)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				id := fmt.Sprintf("w%d-%d", w, i%10)
				if err := idx.Add(ctx, id, vector(w*rounds+i)); err != nil {
					errs <- err
				}
				if i%3 == 0 {
					if err := idx.Delete(ctx, fmt.Sprintf("w%d-%d", w, (i+5)%10)); err != nil {
						errs <- err
					}
				}
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				hits, err := idx.Search(ctx, vector(r+i), k)
				if err != nil {
					errs <- err
					continue
				}
				if len(hits) > k {
					errs <- fmt.Errorf("got %d hits for k=%d", len(hits), k)
				}
				for _, h := range hits {
					if h.Similarity < -1-1e-5 || h.Similarity > 1+1e-5 {
						errs <- fmt.Errorf("similarity %f out of range for %s", h.Similarity, h.ChunkID)
					}
				}
			}
		}(r)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, idx.Len(), writers*10)
}
