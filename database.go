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

// Package mimesis builds persona chat agents grounded in a person's own
// writing. A Database wires storage, the AI provider and the ingestion,
// retrieval and chat services over one badger data directory.
package mimesis

import (
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/ai/openai"
	"github.com/poiesic/mimesis/chat"
	"github.com/poiesic/mimesis/ingestion"
	"github.com/poiesic/mimesis/reembed"
	"github.com/poiesic/mimesis/retrieval"
	"github.com/poiesic/mimesis/storage"
	"github.com/poiesic/mimesis/storage/badger"
)

type Database struct {
	repos    *badger.Repositories
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building an OpenAI-compatible one.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	return &Database{
		repos:    repos,
		provider: provider,
		logger:   options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) PersonaRepository() storage.PersonaRepository {
	return db.repos.Personas
}

func (db *Database) VectorRepository() storage.VectorRepository {
	return db.repos.Vectors
}

func (db *Database) SessionRepository() storage.SessionRepository {
	return db.repos.Sessions
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger.With("component", "ingestion"))}, opts...)
	return ingestion.NewPipeline(db.repos.Personas, db.repos.Vectors, db.provider, opts...)
}

// NewIngestionQueue creates a pipeline and a background queue over it.
// Release the queue, then the pipeline, when done.
func (db *Database) NewIngestionQueue(pipelineOpts []ingestion.Option, queueOpts ...ingestion.QueueOption) (*ingestion.Queue, *ingestion.Pipeline, error) {
	pipeline, err := db.NewIngestionPipeline(pipelineOpts...)
	if err != nil {
		return nil, nil, err
	}
	queueOpts = append([]ingestion.QueueOption{ingestion.WithQueueLogger(db.logger)}, queueOpts...)
	queue, err := ingestion.NewQueue(pipeline, queueOpts...)
	if err != nil {
		pipeline.Release()
		return nil, nil, err
	}
	return queue, pipeline, nil
}

func (db *Database) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	opts = append([]retrieval.Option{retrieval.WithLogger(db.logger.With("component", "retrieval"))}, opts...)
	return retrieval.NewRetriever(db.repos.Vectors, db.provider.Embedder(), opts...)
}

func (db *Database) NewChatService(retrieverOpts []retrieval.Option, opts ...chat.Option) (*chat.Service, error) {
	retriever, err := db.NewRetriever(retrieverOpts...)
	if err != nil {
		return nil, err
	}
	builder, err := retrieval.NewBuilder(db.repos.Personas, retriever, db.logger.With("component", "prompt-builder"))
	if err != nil {
		return nil, err
	}
	opts = append([]chat.Option{chat.WithLogger(db.logger)}, opts...)
	return chat.NewService(db.repos.Sessions, builder, db.provider.Generator(), opts...)
}

// NewReembedder re-embeds collections with embedder, typically built for a
// different embedding model than the Database's provider.
func (db *Database) NewReembedder(embedder ai.Embedder, config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if embedder == nil {
		return nil, errors.New("embedder required")
	}
	return reembed.NewReembedder(db.repos.Vectors, embedder, config, progress), nil
}
