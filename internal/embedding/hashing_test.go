package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(128)
	a, err := e.EmbedQuery(context.Background(), "the invoice total is 150")
	require.NoError(t, err)
	b, err := e.EmbedQuery(context.Background(), "the invoice total is 150")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHashingEmbedderDimension(t *testing.T) {
	e := NewHashingEmbedder(64)
	assert.Equal(t, 64, e.Dimension())
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 64)
	}
}

func TestHashingEmbedderNormalized(t *testing.T) {
	e := NewHashingEmbedder(128)
	v, err := e.EmbedQuery(context.Background(), "words to hash into buckets")
	require.NoError(t, err)
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestHashingEmbedderEmptyText(t *testing.T) {
	e := NewHashingEmbedder(32)
	v, err := e.EmbedQuery(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}
