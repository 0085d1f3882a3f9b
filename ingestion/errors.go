package ingestion

import "errors"

var (
	// ErrPersonaRepositoryRequired is returned when a persona repository is not provided.
	ErrPersonaRepositoryRequired = errors.New("persona repository required")

	// ErrVectorRepositoryRequired is returned when a vector repository is not provided.
	ErrVectorRepositoryRequired = errors.New("vector repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrPipelineRequired is returned when a queue is built without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")

	// ErrQueueClosed is returned when submitting to a released queue.
	ErrQueueClosed = errors.New("ingestion queue closed")
)
