package hashing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whoiskiwi/PatentSearch/internal/intelligence/common"
)

func TestNew_RejectsBadDimension(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestEmbedTexts_DeterministicAndNormalized(t *testing.T) {
	e, err := New(64)
	require.NoError(t, err)
	assert.Equal(t, "hashing-fnv1a-64", e.ModelID())
	assert.Equal(t, 64, e.Dimension())

	a, err := e.EmbedTexts(context.Background(), []string{"Tire pressure sensor", "tire, pressure; SENSOR!"})
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Equal(t, a[0], a[1], "case and punctuation must not matter")
	assert.InDelta(t, 1.0, common.Norm(a[0]), 1e-6)

	b, err := e.EmbedTexts(context.Background(), []string{"Tire pressure sensor"})
	require.NoError(t, err)
	assert.Equal(t, a[0], b[0])
}

func TestEmbedTexts_SimilarityTracksOverlap(t *testing.T) {
	e, _ := New(256)
	vecs, err := e.EmbedTexts(context.Background(), []string{
		"a tire comprising a pressure sensor",
		"tire pressure sensor module",
		"rolling element bearing lubrication",
	})
	require.NoError(t, err)
	assert.Greater(t, common.Cosine(vecs[0], vecs[1]), common.Cosine(vecs[0], vecs[2]))
}

func TestEmbedTexts_EmptyTextIsZero(t *testing.T) {
	e, _ := New(8)
	vecs, err := e.EmbedTexts(context.Background(), []string{"  ,. "})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vecs[0])
}

func TestEmbedTexts_Cancelled(t *testing.T) {
	e, _ := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EmbedTexts(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
