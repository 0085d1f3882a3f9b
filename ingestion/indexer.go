package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

const (
	DefaultEmbedAttempts  = 3
	DefaultEmbedBaseDelay = 500 * time.Millisecond
)

// Indexer embeds chunks and writes them to the persona's collection.
type Indexer struct {
	vectors     storage.VectorRepository
	embedder    ai.Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

var _ processor = (*Indexer)(nil)

// NewIndexer creates an Indexer.
func NewIndexer(vectors storage.VectorRepository, embedder ai.Embedder, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) (*Indexer, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrAIProviderRequired
	}
	if maxAttempts <= 0 {
		return nil, ai.ErrInvalidMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		vectors:     vectors,
		embedder:    embedder,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger.With("processor", "indexer"),
	}, nil
}

// Index embeds chunks in one batch and stores them under the collection for
// personaName. If replace is set the collection's previous entries are
// removed in the same write. Nothing is written unless every chunk was
// embedded. Failures wrap core.ErrIndexingFailed.
func (ix *Indexer) Index(ctx context.Context, personaName string, chunks []core.Chunk, replace bool) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	collection := core.CollectionName(personaName)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	ix.logger.Debug("embedding chunks", "persona", personaName, "chunks", len(texts))
	vectors, err := ai.EmbedTextsWithRetry(ctx, ix.embedder, texts, ix.maxAttempts, ix.baseDelay)
	if err != nil {
		return 0, fmt.Errorf("%w: embedding %d chunks: %w", core.ErrIndexingFailed, len(texts), err)
	}

	entries := make([]*core.VectorEntry, len(chunks))
	for i, ch := range chunks {
		entries[i] = &core.VectorEntry{
			SourceID: ch.SourceID,
			Text:     ch.Text,
			Vector:   ai.NormalizeVector(vectors[i]),
			Metadata: map[string]string{
				"source_id":      strconv.FormatUint(uint64(ch.SourceID), 10),
				"chunk_index":    strconv.Itoa(ch.Index),
				"start_position": strconv.Itoa(ch.Start),
				"end_position":   strconv.Itoa(ch.End),
			},
		}
	}

	if replace {
		_, err = ix.vectors.ReplaceEntries(ctx, collection, entries...)
	} else {
		_, err = ix.vectors.AddEntries(ctx, collection, entries...)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: storing %d entries: %w", core.ErrIndexingFailed, len(entries), err)
	}

	ix.logger.Info("indexed chunks", "persona", personaName, "collection", collection, "chunks", len(entries), "replace", replace)
	return len(entries), nil
}

func (ix *Indexer) process(ctx context.Context, b *batch) (outcome, error) {
	n, err := ix.Index(ctx, b.personaName, b.chunks, b.replace)
	return outcome{indexed: n, collection: core.CollectionName(b.personaName)}, err
}
