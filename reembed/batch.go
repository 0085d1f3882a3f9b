package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// BatchProcessor re-embeds batches of collection entries.
type BatchProcessor struct {
	repo           storage.VectorRepository
	embedder       ai.Embedder
	collection     string
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor for collection.
// maxRetries: maximum number of attempts for each embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.VectorRepository, embedder ai.Embedder, collection string, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		collection:     collection,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the entries' text and stores the normalized vectors.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}

	embeddings, err := ai.EmbedTextsWithRetry(ctx, bp.embedder, texts, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	for i := range entries {
		entries[i].Vector = ai.NormalizeVector(embeddings[i])
	}

	if err := bp.repo.UpdateVectors(ctx, bp.collection, entries...); err != nil {
		return fmt.Errorf("failed to update entries: %w", err)
	}

	return nil
}
