package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
	"github.com/tmc/langchaingo/prompts"
)

const (
	// DefaultSummaryPrefix is the number of leading characters of the
	// combined source text shown to the generator.
	DefaultSummaryPrefix = 4000

	DefaultSummaryMaxTokens   = 500
	DefaultSummaryTemperature = 0.7
)

var summaryPrompt = prompts.NewPromptTemplate(
	"You are an expert in analyzing text to create detailed persona profiles. "+
		"Based on the following content authored by {{.name}}, create a rich persona description. "+
		"Include tone, style, key themes, and notable characteristics in your summary. "+
		"The description should be concise but rich enough to guide a conversational AI.\n\n"+
		"Content:\n{{.content}}",
	[]string{"name", "content"},
)

// SummarizerConfig tunes the persona description request.
type SummarizerConfig struct {
	PrefixLength int
	MaxTokens    int
	Temperature  float64
	Model        string
}

// DefaultSummarizerConfig returns the standard summary settings.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		PrefixLength: DefaultSummaryPrefix,
		MaxTokens:    DefaultSummaryMaxTokens,
		Temperature:  DefaultSummaryTemperature,
	}
}

// Summarizer derives a persona description from source text and stores it
// with first-write-wins semantics.
type Summarizer struct {
	personas  storage.PersonaRepository
	generator ai.Generator
	config    SummarizerConfig
	logger    *slog.Logger
}

var _ processor = (*Summarizer)(nil)

// NewSummarizer creates a Summarizer.
func NewSummarizer(personas storage.PersonaRepository, generator ai.Generator, config SummarizerConfig, logger *slog.Logger) (*Summarizer, error) {
	if personas == nil {
		return nil, ErrPersonaRepositoryRequired
	}
	if generator == nil {
		return nil, ErrAIProviderRequired
	}
	if config.PrefixLength <= 0 {
		return nil, fmt.Errorf("summary prefix length must be positive, got %d", config.PrefixLength)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		personas:  personas,
		generator: generator,
		config:    config,
		logger:    logger.With("processor", "summarizer"),
	}, nil
}

// Prefix returns the first n characters of text.
func Prefix(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

// Summarize asks the generator for a description of name based on the
// bounded prefix of text. Failures wrap core.ErrSummarizationFailed.
func (s *Summarizer) Summarize(ctx context.Context, name, text string) (string, error) {
	prompt, err := summaryPrompt.Format(map[string]any{
		"name":    name,
		"content": Prefix(text, s.config.PrefixLength),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}

	description, err := s.generator.Generate(ctx, []core.Message{
		{Role: core.RoleSystem, Content: prompt},
	}, ai.GenerateOptions{
		Model:       s.config.Model,
		Temperature: ai.Temperature(s.config.Temperature),
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("%w: empty description", core.ErrSummarizationFailed)
	}
	return description, nil
}

// process stores a description for the batch's persona. An existing
// profile is returned as is and the generator is not called.
func (s *Summarizer) process(ctx context.Context, b *batch) (outcome, error) {
	existing, err := s.personas.GetPersona(ctx, b.personaName)
	if err == nil {
		s.logger.Info("persona already exists, keeping description", "persona", b.personaName)
		return outcome{persona: existing}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return outcome{}, fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}

	description, err := s.Summarize(ctx, b.personaName, b.fullText)
	if err != nil {
		return outcome{}, err
	}

	stored, created, err := s.personas.GetOrCreatePersona(ctx, &core.Persona{
		Name:        b.personaName,
		Description: description,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %w", core.ErrSummarizationFailed, err)
	}

	if created {
		s.logger.Info("persona created", "persona", b.personaName, "description_length", len(description))
	} else {
		s.logger.Info("persona created concurrently, discarding description", "persona", b.personaName)
	}
	return outcome{persona: stored, personaCreated: created}, nil
}
