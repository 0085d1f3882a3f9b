package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// DefaultK is the number of chunks retrieved per query.
const DefaultK = 3

// Retriever finds the chunks of a persona's collection nearest to a query.
type Retriever struct {
	vectorRepository storage.VectorRepository
	embedder         ai.Embedder
	minScore         float32
	filterScores     bool
	logger           *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMinScore drops chunks whose cosine similarity is below score.
// By default every nearest chunk is kept.
func WithMinScore(score float32) Option {
	return func(r *Retriever) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score must be between -1 and 1, got %v", score)
		}
		r.minScore = score
		r.filterScores = true
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(vectorRepository storage.VectorRepository, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if vectorRepository == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		vectorRepository: vectorRepository,
		embedder:         embedder,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to k chunks from personaName's collection ranked by
// similarity to query. It never returns an error; failures are reported
// through the Outcome.
func (r *Retriever) Retrieve(ctx context.Context, personaName, query string, k int) Outcome {
	return r.RetrieveWithMonitor(ctx, personaName, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with monitoring.
// The monitor receives callbacks at each stage of the lookup.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, personaName, query string, k int, monitor Monitor) Outcome {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	collection := core.CollectionName(personaName)
	monitor.Start(collection, query)

	outcome := r.retrieve(ctx, collection, query, k, monitor)
	if outcome.Status == StatusFailed {
		r.logger.Warn("retrieval unavailable, continuing without context",
			"collection", collection, "err", outcome.Err)
	} else {
		r.logger.Debug("retrieval finished", "collection", collection,
			"status", outcome.Status.String(), "chunks", len(outcome.Chunks))
	}

	monitor.Finish(outcome)
	return outcome
}

func (r *Retriever) retrieve(ctx context.Context, collection, query string, k int, monitor Monitor) Outcome {
	if k <= 0 {
		return empty()
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return failed(fmt.Errorf("%w: embedding query: %w", core.ErrRetrievalUnavailable, err))
	}
	if len(vector) == 0 {
		return failed(fmt.Errorf("%w: empty query embedding", core.ErrRetrievalUnavailable))
	}
	vector = ai.NormalizeVector(vector)
	monitor.AfterEmbedding(vector)

	chunks, err := r.vectorRepository.FindSimilar(ctx, collection, vector, k)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err))
	}
	monitor.AfterQuery(chunks)

	if r.filterScores {
		kept := chunks[:0]
		for _, c := range chunks {
			if c.Score >= r.minScore {
				kept = append(kept, c)
			}
		}
		chunks = kept
	}

	if len(chunks) == 0 {
		return empty()
	}
	return Outcome{Status: StatusHit, Chunks: chunks}
}
