package ai

import (
	"context"

	"github.com/poiesic/mimesis/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateOptions tunes a single generation call.
// An empty Model, a nil Temperature or a zero MaxTokens falls back to the
// generator's configured default. A non-nil Temperature is used as given,
// including zero.
type GenerateOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Temperature returns a pointer to t for GenerateOptions.
func Temperature(t float64) *float64 {
	return &t
}

// Generator produces text from an ordered list of chat messages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the model's reply to messages. The first message is
	// usually the system prompt; the rest alternate user and assistant turns.
	Generate(ctx context.Context, messages []core.Message, opts GenerateOptions) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
