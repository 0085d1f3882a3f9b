package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/storage"
)

// Builder composes generator prompts for a persona.
type Builder struct {
	personaRepository storage.PersonaRepository
	retriever         *Retriever
	logger            *slog.Logger
}

// NewBuilder creates a prompt builder.
func NewBuilder(personaRepository storage.PersonaRepository, retriever *Retriever, logger *slog.Logger) (*Builder, error) {
	if personaRepository == nil {
		return nil, ErrPersonaRepositoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		personaRepository: personaRepository,
		retriever:         retriever,
		logger:            logger,
	}, nil
}

// BuildRequest holds the inputs of one prompt.
type BuildRequest struct {
	PersonaName string
	Query       string
	History     []core.Message
	// K is the number of chunks to retrieve. Zero means DefaultK.
	K            int
	UseRetrieval bool
	Monitor      Monitor
}

// Prompt is a composed message sequence and the retrieval that shaped it.
type Prompt struct {
	Persona   *core.Persona
	Messages  []core.Message
	Retrieved []string
	Outcome   Outcome
}

// Build resolves the persona, retrieves context and returns the messages
// system instruction, history, then the new user turn. It fails only when
// the persona does not exist or the prompt cannot be rendered. Build does
// not modify any stored state.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*Prompt, error) {
	persona, err := b.personaRepository.GetPersona(ctx, req.PersonaName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrPersonaNotFound, req.PersonaName)
	}
	if err != nil {
		return nil, err
	}

	k := req.K
	if k == 0 {
		k = DefaultK
	}

	outcome := empty()
	if req.UseRetrieval {
		outcome = b.retriever.RetrieveWithMonitor(ctx, req.PersonaName, req.Query, k, req.Monitor)
	}

	var retrieved []string
	switch outcome.Status {
	case StatusHit:
		retrieved = outcome.Texts()
	case StatusEmpty:
		b.logger.Debug("no context retrieved", "persona", req.PersonaName)
	case StatusFailed:
		b.logger.Info("building persona-only prompt after failed retrieval", "persona", req.PersonaName)
	}

	instruction, err := SystemInstruction(persona.Name, persona.Description, retrieved)
	if err != nil {
		return nil, fmt.Errorf("rendering system instruction: %w", err)
	}

	now := time.Now().UTC()
	messages := make([]core.Message, 0, len(req.History)+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: instruction, Timestamp: now})
	messages = append(messages, req.History...)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Query, Timestamp: now})

	if retrieved == nil {
		retrieved = []string{}
	}
	return &Prompt{
		Persona:   persona,
		Messages:  messages,
		Retrieved: retrieved,
		Outcome:   outcome,
	}, nil
}
