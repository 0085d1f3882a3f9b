package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/chunker"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/extract"
	"github.com/poiesic/mimesis/storage"
)

// Pipeline turns documents into a persona profile and an indexed vector
// collection. Summarization and indexing run concurrently on separate
// worker pools and do not affect each other's outcome.
type Pipeline struct {
	personaRepository storage.PersonaRepository
	vectorRepository  storage.VectorRepository
	extractor         *extract.Extractor
	chunker           *chunker.Chunker
	summaryPool       *ants.Pool
	indexPool         *ants.Pool
	summaryProc       processor
	indexProc         processor
	summaryConfig     SummarizerConfig
	embedAttempts     int
	embedBaseDelay    time.Duration
	logger            *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pools
		if p.summaryPool != nil {
			p.summaryPool.Release()
		}
		if p.indexPool != nil {
			p.indexPool.Release()
		}

		summaryPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		indexPool, err := ants.NewPool(size)
		if err != nil {
			summaryPool.Release()
			return err
		}

		p.summaryPool = summaryPool
		p.indexPool = indexPool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithExtractor replaces the default extractor, typically to add a Fetcher
// for URL sources.
func WithExtractor(e *extract.Extractor) Option {
	return func(p *Pipeline) error {
		if e == nil {
			return ErrExtractorRequired
		}
		p.extractor = e
		return nil
	}
}

// WithChunker replaces the default 1000/100 chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c == nil {
			return errors.New("chunker cannot be nil")
		}
		p.chunker = c
		return nil
	}
}

// WithSummarizerConfig overrides the persona summary settings.
func WithSummarizerConfig(config SummarizerConfig) Option {
	return func(p *Pipeline) error {
		p.summaryConfig = config
		return nil
	}
}

// WithEmbedRetry sets how many times a failed embedding batch is attempted
// and the base delay of the exponential backoff between attempts.
func WithEmbedRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		p.embedAttempts = maxAttempts
		p.embedBaseDelay = baseDelay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	personaRepository storage.PersonaRepository,
	vectorRepository storage.VectorRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if personaRepository == nil {
		return nil, ErrPersonaRepositoryRequired
	}
	if vectorRepository == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	summaryPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	indexPool, err := ants.NewPool(poolSize)
	if err != nil {
		summaryPool.Release()
		return nil, err
	}

	p := &Pipeline{
		personaRepository: personaRepository,
		vectorRepository:  vectorRepository,
		summaryPool:       summaryPool,
		indexPool:         indexPool,
		summaryConfig:     DefaultSummarizerConfig(),
		embedAttempts:     DefaultEmbedAttempts,
		embedBaseDelay:    DefaultEmbedBaseDelay,
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.extractor == nil {
		p.extractor, err = extract.New(extract.WithLogger(p.logger.With("component", "extractor")))
		if err != nil {
			p.Release()
			return nil, err
		}
	}
	if p.chunker == nil {
		p.chunker, err = chunker.New()
		if err != nil {
			p.Release()
			return nil, err
		}
	}

	// Processors are built last so they see the final config
	summarizer, err := NewSummarizer(personaRepository, provider.Generator(), p.summaryConfig, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	indexer, err := NewIndexer(vectorRepository, provider.Embedder(), p.embedAttempts, p.embedBaseDelay, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}

	p.summaryProc = summarizer
	p.indexProc = indexer

	return p, nil
}

// IngestRequest describes one ingestion run for a persona.
type IngestRequest struct {
	PersonaName string
	Documents   []extract.Document
	URLs        []string
	// Replace clears the persona's collection before the new entries are
	// written. The clear only happens once every chunk has been embedded.
	Replace bool
}

// Report summarizes an ingestion run.
type Report struct {
	PersonaName    string
	Collection     string
	Sources        int
	Skipped        []extract.Skip
	Chunks         int
	Indexed        int
	PersonaCreated bool
	// Warnings holds absorbed failures such as a failed persona summary.
	Warnings []error
}

// Ingest extracts, chunks, summarizes and indexes the request's documents.
// It returns an error wrapping core.ErrNoUsableContent when nothing could be
// extracted, and core.ErrIndexingFailed when the chunks could not be stored.
// A failed summary is recorded in Report.Warnings only. The report is
// returned alongside any error.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*Report, error) {
	if err := core.ValidatePersonaName(req.PersonaName); err != nil {
		return nil, err
	}

	report := &Report{
		PersonaName: req.PersonaName,
		Collection:  core.CollectionName(req.PersonaName),
	}

	extracted, err := p.extractor.Extract(ctx, req.Documents, req.URLs)
	if extracted != nil {
		report.Sources = len(extracted.Sources)
		report.Skipped = extracted.Skipped
	}
	if err != nil {
		return report, err
	}

	chunks := p.chunker.SplitSources(extracted.Sources)
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		return report, fmt.Errorf("%w: sources produced no chunks", core.ErrNoUsableContent)
	}

	texts := make([]string, len(extracted.Sources))
	for i, src := range extracted.Sources {
		texts[i] = src.Text
	}

	b := &batch{
		personaName: req.PersonaName,
		fullText:    strings.Join(texts, " "),
		chunks:      chunks,
		replace:     req.Replace,
	}

	var (
		wg                   sync.WaitGroup
		summary, index       outcome
		summaryErr, indexErr error
	)

	wg.Add(2)
	if err := p.summaryPool.Submit(func() {
		defer wg.Done()
		summary, summaryErr = p.summaryProc.process(ctx, b)
	}); err != nil {
		wg.Done()
		summaryErr = fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}
	if err := p.indexPool.Submit(func() {
		defer wg.Done()
		index, indexErr = p.indexProc.process(ctx, b)
	}); err != nil {
		wg.Done()
		indexErr = fmt.Errorf("%w: %w", core.ErrIndexingFailed, err)
	}
	wg.Wait()

	report.PersonaCreated = summary.personaCreated
	report.Indexed = index.indexed

	if summaryErr != nil {
		p.logger.Warn("persona summary failed", "persona", req.PersonaName, "err", summaryErr)
		report.Warnings = append(report.Warnings, summaryErr)
	}
	if indexErr != nil {
		p.logger.Error("indexing failed", "persona", req.PersonaName, "err", indexErr)
		return report, indexErr
	}

	p.logger.Info("ingestion complete",
		"persona", req.PersonaName,
		"sources", report.Sources,
		"skipped", len(report.Skipped),
		"chunks", report.Chunks,
		"indexed", report.Indexed,
		"persona_created", report.PersonaCreated)
	return report, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.summaryPool != nil {
		p.summaryPool.Release()
	}
	if p.indexPool != nil {
		p.indexPool.Release()
	}
}
