package storage

import (
	"testing"
	"time"

	"github.com/poiesic/mimesis/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	// A continuation bit with nothing after it.
	_, err := UnmarshalID([]byte{0x80})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalUnmarshalVectorEntry(t *testing.T) {
	entry := &core.VectorEntry{
		ID:       7,
		SourceID: core.IDFromContent("notes.txt"),
		Text:     "It was the best of times.",
		Vector:   []float32{0.25, -0.5, 1, 0},
		Metadata: map[string]string{"path": "notes.txt", "index": "3"},
	}

	decoded, err := UnmarshalVectorEntry(MarshalVectorEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestMarshalVectorEntry_Deterministic(t *testing.T) {
	entry := &core.VectorEntry{
		ID:       1,
		Metadata: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}
	first := MarshalVectorEntry(entry)
	for range 10 {
		assert.Equal(t, first, MarshalVectorEntry(entry))
	}
}

func TestMarshalUnmarshalMessage(t *testing.T) {
	msg := &core.Message{
		Role:             core.RoleAssistant,
		Content:          "Hello",
		Timestamp:        time.Now().UTC(),
		RetrievalContext: []string{"ctx one"},
		RetrievalSources: []core.ID{1, 2},
	}

	decoded, err := UnmarshalMessage(MarshalMessage(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.Role, decoded.Role)
	assert.Equal(t, msg.Content, decoded.Content)
	assert.True(t, msg.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, msg.RetrievalContext, decoded.RetrievalContext)
	assert.Equal(t, msg.RetrievalSources, decoded.RetrievalSources)
}

func TestMarshalUnmarshalPersona(t *testing.T) {
	persona := &core.Persona{
		ID:          core.PersonaIDFromName("Ada"),
		Name:        "Ada",
		Description: "Counts things.",
		CreatedAt:   time.Date(2025, 6, 1, 9, 0, 0, 42, time.UTC),
	}

	decoded, err := UnmarshalPersona(MarshalPersona(persona))
	require.NoError(t, err)
	assert.Equal(t, persona, decoded)
}

func TestMarshalUnmarshalSession(t *testing.T) {
	session := &core.Session{
		ID:        3,
		Owner:     "Ada",
		Config:    core.DefaultSessionConfig(),
		CreatedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalSession(MarshalSession(session))
	require.NoError(t, err)
	assert.Equal(t, session, decoded)
}

func TestMarshalUnmarshalCollectionMeta(t *testing.T) {
	meta := &CollectionMeta{
		Name:       "persona_ada",
		Dimension:  3072,
		Generation: 17,
		CreatedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalCollectionMeta(MarshalCollectionMeta(meta))
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestUnmarshal_Truncated(t *testing.T) {
	persona := MarshalPersona(&core.Persona{Name: "Ada", Description: "Counts things."})
	entry := MarshalVectorEntry(&core.VectorEntry{Text: "text", Vector: []float32{1, 2, 3}})
	meta := MarshalCollectionMeta(&CollectionMeta{Name: "c", Dimension: 3, Generation: 1})

	tests := []struct {
		name      string
		unmarshal func() error
	}{
		{"persona", func() error { _, err := UnmarshalPersona(persona[:len(persona)/2]); return err }},
		{"vector entry", func() error { _, err := UnmarshalVectorEntry(entry[:len(entry)-3]); return err }},
		{"collection meta", func() error { _, err := UnmarshalCollectionMeta(meta[:2]); return err }},
		{"empty message", func() error { _, err := UnmarshalMessage(nil); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.unmarshal(), ErrSerializationFailed)
		})
	}
}
