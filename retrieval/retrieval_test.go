package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/ai/mock"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMonitor struct {
	started  string
	embedded bool
	queried  []core.RetrievedChunk
	finished *Outcome
}

func (m *recordingMonitor) Start(collection, _ string)              { m.started = collection }
func (m *recordingMonitor) AfterEmbedding(_ []float32)              { m.embedded = true }
func (m *recordingMonitor) AfterQuery(chunks []core.RetrievedChunk) { m.queried = chunks }
func (m *recordingMonitor) Finish(outcome Outcome)                  { m.finished = &outcome }

func setupRepos(t *testing.T) *badger.Repositories {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func seed(t *testing.T, repos *badger.Repositories, persona string, texts ...string) {
	t.Helper()
	entries := make([]*core.VectorEntry, len(texts))
	for i, text := range texts {
		entries[i] = &core.VectorEntry{
			SourceID: core.ID(i + 1),
			Text:     text,
			Vector:   mock.DeterministicVector(text, mock.Dimension),
		}
	}
	_, err := repos.Vectors.AddEntries(context.Background(), core.CollectionName(persona), entries...)
	require.NoError(t, err)
}

func seedPersona(t *testing.T, repos *badger.Repositories, name, description string) {
	t.Helper()
	_, _, err := repos.Personas.GetOrCreatePersona(context.Background(), &core.Persona{Name: name, Description: description})
	require.NoError(t, err)
}

func TestNewRetriever(t *testing.T) {
	repos := setupRepos(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(repos.Vectors, embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("nil vector repository", func(t *testing.T) {
		_, err := NewRetriever(nil, embedder)
		assert.Equal(t, ErrVectorRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewRetriever(repos.Vectors, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("min score out of range", func(t *testing.T) {
		_, err := NewRetriever(repos.Vectors, embedder, WithMinScore(2))
		assert.Error(t, err)
	})
}

func TestRetriever_Retrieve(t *testing.T) {
	repos := setupRepos(t)
	seed(t, repos, "Alice", "apples are red", "bananas are yellow", "cherries are dark", "dates are sweet")
	r, err := NewRetriever(repos.Vectors, mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("hit returns k chunks with the exact match first", func(t *testing.T) {
		monitor := &recordingMonitor{}
		outcome := r.RetrieveWithMonitor(ctx, "Alice", "bananas are yellow", 3, monitor)
		require.Equal(t, StatusHit, outcome.Status)
		require.Len(t, outcome.Chunks, 3)
		assert.Equal(t, "bananas are yellow", outcome.Chunks[0].Text)
		assert.InDelta(t, 1.0, outcome.Chunks[0].Score, 1e-4)
		assert.NoError(t, outcome.Err)

		assert.Equal(t, core.CollectionName("Alice"), monitor.started)
		assert.True(t, monitor.embedded)
		assert.Len(t, monitor.queried, 3)
		require.NotNil(t, monitor.finished)
		assert.Equal(t, StatusHit, monitor.finished.Status)
	})

	t.Run("k larger than collection", func(t *testing.T) {
		outcome := r.Retrieve(ctx, "Alice", "fruit", 10)
		require.Equal(t, StatusHit, outcome.Status)
		assert.Len(t, outcome.Chunks, 4)
	})

	t.Run("non-positive k is empty", func(t *testing.T) {
		outcome := r.Retrieve(ctx, "Alice", "fruit", 0)
		assert.Equal(t, StatusEmpty, outcome.Status)
		assert.Empty(t, outcome.Chunks)
	})

	t.Run("missing collection fails softly", func(t *testing.T) {
		outcome := r.Retrieve(ctx, "Nobody", "fruit", 3)
		assert.Equal(t, StatusFailed, outcome.Status)
		assert.ErrorIs(t, outcome.Err, core.ErrRetrievalUnavailable)
		assert.Empty(t, outcome.Chunks)
	})

	t.Run("other persona's collection is not searched", func(t *testing.T) {
		seed(t, repos, "Bob", "bob writes about boats")
		outcome := r.Retrieve(ctx, "Bob", "apples are red", 5)
		require.Equal(t, StatusHit, outcome.Status)
		require.Len(t, outcome.Chunks, 1)
		assert.Equal(t, "bob writes about boats", outcome.Chunks[0].Text)
	})
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	repos := setupRepos(t)
	seed(t, repos, "Alice", "apples are red")
	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	})
	r, err := NewRetriever(repos.Vectors, embedder)
	require.NoError(t, err)

	outcome := r.Retrieve(context.Background(), "Alice", "apples", 3)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err, core.ErrRetrievalUnavailable)
}

func TestRetriever_MinScore(t *testing.T) {
	repos := setupRepos(t)
	seed(t, repos, "Alice", "apples are red", "bananas are yellow")
	r, err := NewRetriever(repos.Vectors, mock.NewMockEmbedder(), WithMinScore(0.999))
	require.NoError(t, err)
	ctx := context.Background()

	outcome := r.Retrieve(ctx, "Alice", "apples are red", 3)
	require.Equal(t, StatusHit, outcome.Status)
	require.Len(t, outcome.Chunks, 1)
	assert.Equal(t, "apples are red", outcome.Chunks[0].Text)

	outcome = r.Retrieve(ctx, "Alice", "something unrelated entirely", 3)
	assert.Equal(t, StatusEmpty, outcome.Status)
}

func TestOutcome_SourceIDs(t *testing.T) {
	outcome := Outcome{Status: StatusHit, Chunks: []core.RetrievedChunk{
		{SourceID: 7, Text: "a"},
		{SourceID: 3, Text: "b"},
		{SourceID: 7, Text: "c"},
	}}
	assert.Equal(t, []core.ID{7, 3}, outcome.SourceIDs())
	assert.Equal(t, []string{"a", "b", "c"}, outcome.Texts())
	assert.Equal(t, "hit", outcome.Status.String())
}

func TestSystemInstruction(t *testing.T) {
	t.Run("with context", func(t *testing.T) {
		text, err := SystemInstruction("Ada", "Precise and warm.", []string{"first chunk", "second chunk"})
		require.NoError(t, err)
		assert.Contains(t, text, "Precise and warm.")
		assert.Contains(t, text, "--- Relevant Context ---\nContext 1: first chunk\nContext 2: second chunk\n--- End Context ---")
		assert.Contains(t, text, "Stay in character as Ada")
		assert.Less(t, strings.Index(text, "first chunk"), strings.Index(text, "second chunk"))
	})

	t.Run("without context", func(t *testing.T) {
		text, err := SystemInstruction("Ada", "Precise and warm.", nil)
		require.NoError(t, err)
		assert.Contains(t, text, "Precise and warm.")
		assert.Contains(t, text, "No contextual information is available")
		assert.NotContains(t, text, "Relevant Context")
	})

	t.Run("template syntax in values is literal", func(t *testing.T) {
		text, err := SystemInstruction("{{.name}}", "uses {{ braces }}", []string{"{{range}}"})
		require.NoError(t, err)
		assert.Contains(t, text, "uses {{ braces }}")
		assert.Contains(t, text, "Context 1: {{range}}")
	})
}

func newTestBuilder(t *testing.T, repos *badger.Repositories, embedder ai.Embedder) *Builder {
	t.Helper()
	r, err := NewRetriever(repos.Vectors, embedder)
	require.NoError(t, err)
	b, err := NewBuilder(repos.Personas, r, nil)
	require.NoError(t, err)
	return b
}

func TestNewBuilder(t *testing.T) {
	repos := setupRepos(t)
	r, err := NewRetriever(repos.Vectors, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewBuilder(nil, r, nil)
	assert.Equal(t, ErrPersonaRepositoryRequired, err)

	_, err = NewBuilder(repos.Personas, nil, nil)
	assert.Equal(t, ErrRetrieverRequired, err)
}

func TestBuilder_Build(t *testing.T) {
	repos := setupRepos(t)
	seedPersona(t, repos, "Ada", "Precise and warm.")
	seed(t, repos, "Ada", "engines compute numbers", "poetry of science", "notes on the analytical engine", "letters to friends")
	b := newTestBuilder(t, repos, mock.NewMockEmbedder())
	ctx := context.Background()

	history := []core.Message{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
	}

	prompt, err := b.Build(ctx, BuildRequest{
		PersonaName:  "Ada",
		Query:        "poetry of science",
		History:      history,
		UseRetrieval: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", prompt.Persona.Name)
	assert.Equal(t, StatusHit, prompt.Outcome.Status)
	require.Len(t, prompt.Retrieved, DefaultK)
	assert.Equal(t, "poetry of science", prompt.Retrieved[0])

	require.Len(t, prompt.Messages, 4)
	assert.Equal(t, core.RoleSystem, prompt.Messages[0].Role)
	assert.Contains(t, prompt.Messages[0].Content, "Context 1: poetry of science")
	assert.Equal(t, "hi", prompt.Messages[1].Content)
	assert.Equal(t, "hello", prompt.Messages[2].Content)
	assert.Equal(t, core.RoleUser, prompt.Messages[3].Role)
	assert.Equal(t, "poetry of science", prompt.Messages[3].Content)
}

func TestBuilder_Build_PersonaNotFound(t *testing.T) {
	repos := setupRepos(t)
	b := newTestBuilder(t, repos, mock.NewMockEmbedder())

	_, err := b.Build(context.Background(), BuildRequest{PersonaName: "Ghost", Query: "hi", UseRetrieval: true})
	assert.ErrorIs(t, err, core.ErrPersonaNotFound)
}

func TestBuilder_Build_MissingCollectionDegrades(t *testing.T) {
	repos := setupRepos(t)
	seedPersona(t, repos, "Lonely", "No documents yet.")
	b := newTestBuilder(t, repos, mock.NewMockEmbedder())

	prompt, err := b.Build(context.Background(), BuildRequest{PersonaName: "Lonely", Query: "hello", UseRetrieval: true})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, prompt.Outcome.Status)
	assert.Empty(t, prompt.Retrieved)
	assert.NotNil(t, prompt.Retrieved)
	assert.Contains(t, prompt.Messages[0].Content, "No contextual information is available")
}

func TestBuilder_Build_RetrievalDisabled(t *testing.T) {
	repos := setupRepos(t)
	seedPersona(t, repos, "Ada", "Precise and warm.")
	seed(t, repos, "Ada", "engines compute numbers")
	embedder := mock.NewMockEmbedder()
	b := newTestBuilder(t, repos, embedder)

	prompt, err := b.Build(context.Background(), BuildRequest{PersonaName: "Ada", Query: "engines", UseRetrieval: false})
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, prompt.Outcome.Status)
	assert.Empty(t, prompt.Retrieved)
	assert.Zero(t, embedder.CallCount())
	assert.Len(t, prompt.Messages, 2)
}
