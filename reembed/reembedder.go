// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of entries to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder rewrites every vector of a collection.
type Reembedder struct {
	repo     storage.VectorRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.VectorRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:     repo,
		embedder: embedder,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reembedder"),
	}
}

// Run re-embeds every entry of collection with the configured embedder.
// Batches are committed as they complete; a failed run leaves earlier
// batches updated. Returns storage.ErrCollectionNotFound for an unknown
// collection.
func (r *Reembedder) Run(ctx context.Context, collection string) error {
	exists, err := r.repo.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to look up collection: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, collection)
	}

	total, err := r.repo.CountEntries(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No entries found in %s (0 entries)\n", collection)
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d entries in %s (batch size: %d)\n",
		total, collection, r.config.BatchSize)
	r.logger.Info("reembedding collection", "collection", collection, "entries", total)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processor := NewBatchProcessor(r.repo, r.embedder, collection, r.config.MaxRetries, r.config.RetryDelay)
	iterator := NewEntryIterator(r.repo, collection, r.config.BatchSize)

	processed := 0
	err = iterator.ForEach(ctx, func(entries []*core.VectorEntry) error {
		if err := processor.Process(ctx, entries); err != nil {
			return fmt.Errorf("failed to process batch after %d entries: %w", processed, err)
		}
		processed += len(entries)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		r.logger.Error("reembedding failed", "collection", collection, "processed", processed, "err", err)
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d entries in %v (%.1f entries/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}
