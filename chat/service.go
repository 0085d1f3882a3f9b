package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/retrieval"
	"github.com/poiesic/mimesis/storage"
)

// Service manages sessions and answers chat requests as a persona.
// Turns on one session must be serialized by the caller.
type Service struct {
	sessionRepository storage.SessionRepository
	builder           *retrieval.Builder
	generator         ai.Generator
	defaults          core.SessionConfig
	logger            *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultConfig sets the config of sessions created without one.
// Default is core.DefaultSessionConfig().
func WithDefaultConfig(config core.SessionConfig) Option {
	return func(s *Service) error {
		if err := ValidateConfig(config); err != nil {
			return err
		}
		s.defaults = config
		return nil
	}
}

// NewService creates a chat service.
func NewService(sessionRepository storage.SessionRepository, builder *retrieval.Builder, generator ai.Generator, opts ...Option) (*Service, error) {
	if sessionRepository == nil {
		return nil, ErrSessionRepositoryRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Service{
		sessionRepository: sessionRepository,
		builder:           builder,
		generator:         generator,
		defaults:          core.DefaultSessionConfig(),
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "chat")
	return s, nil
}

// ValidateConfig checks generation settings.
func ValidateConfig(config core.SessionConfig) error {
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %v", ErrInvalidSessionConfig, config.Temperature)
	}
	if config.MaxTokens < 1 {
		return fmt.Errorf("%w: max tokens must be at least 1, got %d", ErrInvalidSessionConfig, config.MaxTokens)
	}
	if config.RetrievalK < 0 {
		return fmt.Errorf("%w: retrieval k must not be negative, got %d", ErrInvalidSessionConfig, config.RetrievalK)
	}
	return nil
}

// Start creates an empty session for owner. A nil config uses the
// service default.
func (s *Service) Start(ctx context.Context, owner string, config *core.SessionConfig) (core.ID, error) {
	cfg := s.defaults
	if config != nil {
		if err := ValidateConfig(*config); err != nil {
			return 0, err
		}
		cfg = *config
	}

	session, err := s.sessionRepository.CreateSession(ctx, &core.Session{Owner: owner, Config: cfg})
	if err != nil {
		return 0, err
	}
	s.logger.Info("session started", "session", session.ID, "owner", owner)
	return session.ID, nil
}

// Append adds msg to the end of the session.
func (s *Service) Append(ctx context.Context, id core.ID, msg *core.Message) error {
	if err := core.ValidateMessage(msg); err != nil {
		return err
	}
	return s.sessionErr(id, s.sessionRepository.AppendMessages(ctx, id, msg))
}

// History returns the session's messages in insertion order.
func (s *Service) History(ctx context.Context, id core.ID) ([]*core.Message, error) {
	messages, err := s.sessionRepository.GetMessages(ctx, id)
	if err != nil {
		return nil, s.sessionErr(id, err)
	}
	return messages, nil
}

// Session returns the session record.
func (s *Service) Session(ctx context.Context, id core.ID) (*core.Session, error) {
	session, err := s.sessionRepository.GetSession(ctx, id)
	if err != nil {
		return nil, s.sessionErr(id, err)
	}
	return session, nil
}

// Request is one user turn.
type Request struct {
	// SessionID selects an existing session. Nil starts a new one.
	SessionID   *core.ID
	Owner       string
	Query       string
	PersonaName string
}

// Response is the persona's reply to a Request.
type Response struct {
	SessionID        core.ID
	AssistantText    string
	RetrievedContext []string
}

// Chat answers req as the persona. Nothing is stored unless a reply was
// generated; a new session is only created in that case too.
func (s *Service) Chat(ctx context.Context, req Request) (*Response, error) {
	if err := core.ValidatePersonaName(req.PersonaName); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidMessage, core.ErrEmptyContent)
	}

	config := s.defaults
	var history []core.Message
	if req.SessionID != nil {
		session, err := s.Session(ctx, *req.SessionID)
		if err != nil {
			return nil, err
		}
		config = session.Config

		stored, err := s.History(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		history = make([]core.Message, len(stored))
		for i, m := range stored {
			history[i] = *m
		}
	}

	userMsg := &core.Message{Role: core.RoleUser, Content: req.Query, Timestamp: time.Now().UTC()}

	prompt, err := s.builder.Build(ctx, retrieval.BuildRequest{
		PersonaName:  req.PersonaName,
		Query:        req.Query,
		History:      history,
		K:            config.RetrievalK,
		UseRetrieval: config.UseRetrieval,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.generator.Generate(ctx, prompt.Messages, ai.GenerateOptions{
		Model:       config.Model,
		Temperature: ai.Temperature(config.Temperature),
		MaxTokens:   config.MaxTokens,
	})
	if err != nil {
		s.logger.Error("generation failed", "persona", req.PersonaName, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrGeneratorFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty reply", core.ErrGeneratorFailed)
	}

	var sessionID core.ID
	if req.SessionID != nil {
		sessionID = *req.SessionID
	} else {
		sessionID, err = s.Start(ctx, req.Owner, &config)
		if err != nil {
			return nil, err
		}
	}

	assistantMsg := &core.Message{
		Role:             core.RoleAssistant,
		Content:          reply,
		Timestamp:        time.Now().UTC(),
		RetrievalContext: prompt.Retrieved,
		RetrievalSources: prompt.Outcome.SourceIDs(),
	}
	if err := s.sessionRepository.AppendMessages(ctx, sessionID, userMsg, assistantMsg); err != nil {
		return nil, s.sessionErr(sessionID, err)
	}

	s.logger.Debug("chat turn stored",
		"session", sessionID,
		"persona", req.PersonaName,
		"retrieval", prompt.Outcome.Status.String(),
		"context_chunks", len(prompt.Retrieved))

	return &Response{
		SessionID:        sessionID,
		AssistantText:    reply,
		RetrievedContext: prompt.Retrieved,
	}, nil
}

func (s *Service) sessionErr(id core.ID, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %d", core.ErrSessionNotFound, id)
	}
	return err
}
