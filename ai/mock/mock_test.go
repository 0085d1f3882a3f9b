package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", Dimension)
	b := DeterministicVector("hello", Dimension)
	c := DeterministicVector("goodbye", Dimension)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	vecs, err := m.EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 1, m.CallCount())

	m.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("boom")
	})
	_, err = m.EmbedText(ctx, "x")
	assert.Error(t, err)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockGenerator(t *testing.T) {
	ctx := context.Background()
	g := NewMockGenerator()

	reply, err := g.Generate(ctx, []core.Message{{Role: core.RoleUser, Content: "hi"}}, ai.GenerateOptions{MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", reply)

	call, ok := g.LastCall()
	require.True(t, ok)
	assert.Equal(t, 10, call.Options.MaxTokens)
	assert.Equal(t, 1, g.CallCount())
}
