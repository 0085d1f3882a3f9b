// Package config loads the application configuration from YAML and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/chunker"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/ingestion"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig locates the badger data directory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AIConfig configures the OpenAI-compatible embedding and generation hosts.
// The API key is never stored in the file; APIKeyEnv names the variable
// that holds it.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	GeneratorHost  string `yaml:"generator_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	GeneratorModel string `yaml:"generator_model"`
	APIKeyEnv      string `yaml:"api_key_env"`
}

// IngestionConfig tunes chunking, summarization and indexing.
type IngestionConfig struct {
	ChunkSize          int           `yaml:"chunk_size"`
	ChunkOverlap       int           `yaml:"chunk_overlap"`
	SummaryPrefix      int           `yaml:"summary_prefix"`
	SummaryMaxTokens   int           `yaml:"summary_max_tokens"`
	SummaryTemperature float64       `yaml:"summary_temperature"`
	PoolSize           int           `yaml:"pool_size"`
	EmbedRetries       int           `yaml:"embed_retries"`
	EmbedRetryDelay    time.Duration `yaml:"embed_retry_delay"`
}

// ChatConfig holds the settings of newly started sessions.
type ChatConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	RetrievalK   int     `yaml:"retrieval_k"`
	UseRetrieval bool    `yaml:"use_retrieval"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Chat      ChatConfig      `yaml:"chat"`
	LogLevel  string          `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	aiDefaults := ai.DefaultConfig()
	session := core.DefaultSessionConfig()
	summary := ingestion.DefaultSummarizerConfig()

	return &AppConfig{
		Database: DatabaseConfig{Path: "mimesis.db"},
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			GeneratorHost:  aiDefaults.GeneratorHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			GeneratorModel: aiDefaults.GeneratorModel,
			APIKeyEnv:      "OPENAI_API_KEY",
		},
		Ingestion: IngestionConfig{
			ChunkSize:          chunker.DefaultChunkSize,
			ChunkOverlap:       chunker.DefaultOverlap,
			SummaryPrefix:      summary.PrefixLength,
			SummaryMaxTokens:   summary.MaxTokens,
			SummaryTemperature: summary.Temperature,
			PoolSize:           2,
			EmbedRetries:       ingestion.DefaultEmbedAttempts,
			EmbedRetryDelay:    ingestion.DefaultEmbedBaseDelay,
		},
		Chat: ChatConfig{
			Model:        session.Model,
			Temperature:  session.Temperature,
			MaxTokens:    session.MaxTokens,
			RetrievalK:   session.RetrievalK,
			UseRetrieval: session.UseRetrieval,
		},
		LogLevel: "info",
	}
}

// Load reads a config from path over the defaults, so keys missing from
// the file keep their default values. If the file does not exist, returns
// defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadEnv loads .env files into the process environment without replacing
// variables that are already set. With no arguments ./.env is tried, and a
// missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	return godotenv.Load(files...)
}

// Validate checks that the configuration can build a working system.
func (c *AppConfig) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path cannot be empty")
	}
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	if err := chunker.CheckOverlap(c.Ingestion.ChunkSize, c.Ingestion.ChunkOverlap); err != nil {
		return fmt.Errorf("ingestion.chunk_overlap: %w", err)
	}
	if c.Ingestion.SummaryPrefix <= 0 {
		return fmt.Errorf("ingestion.summary_prefix must be positive, got %d", c.Ingestion.SummaryPrefix)
	}
	if c.Ingestion.EmbedRetries <= 0 {
		return fmt.Errorf("ingestion.embed_retries must be positive, got %d", c.Ingestion.EmbedRetries)
	}
	if c.Chat.RetrievalK < 0 {
		return fmt.Errorf("chat.retrieval_k must not be negative, got %d", c.Chat.RetrievalK)
	}
	return nil
}

// APIKey returns the key named by AI.APIKeyEnv, or "" if unset.
func (c *AppConfig) APIKey() string {
	if c.AI.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.AI.APIKeyEnv)
}

// AIConfig builds and validates the provider configuration. Chat
// temperature and max tokens become the generator defaults.
func (c *AppConfig) AIConfig() (*ai.Config, error) {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGeneratorHost(c.AI.GeneratorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithTemperature(c.Chat.Temperature),
		ai.WithMaxTokens(c.Chat.MaxTokens),
	}
	if key := c.APIKey(); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	cfg := ai.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionConfig returns the settings for new chat sessions.
func (c *AppConfig) SessionConfig() core.SessionConfig {
	return core.SessionConfig{
		Model:        c.Chat.Model,
		Temperature:  c.Chat.Temperature,
		MaxTokens:    c.Chat.MaxTokens,
		RetrievalK:   c.Chat.RetrievalK,
		UseRetrieval: c.Chat.UseRetrieval,
	}
}

// SummarizerConfig returns the persona summary settings.
func (c *AppConfig) SummarizerConfig() ingestion.SummarizerConfig {
	return ingestion.SummarizerConfig{
		PrefixLength: c.Ingestion.SummaryPrefix,
		MaxTokens:    c.Ingestion.SummaryMaxTokens,
		Temperature:  c.Ingestion.SummaryTemperature,
		Model:        c.AI.GeneratorModel,
	}
}

// PipelineOptions returns the ingestion options for this configuration.
func (c *AppConfig) PipelineOptions() ([]ingestion.Option, error) {
	chunks, err := chunker.New(
		chunker.WithChunkSize(c.Ingestion.ChunkSize),
		chunker.WithOverlap(c.Ingestion.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}
	return []ingestion.Option{
		ingestion.WithChunker(chunks),
		ingestion.WithPoolSize(c.Ingestion.PoolSize),
		ingestion.WithSummarizerConfig(c.SummarizerConfig()),
		ingestion.WithEmbedRetry(c.Ingestion.EmbedRetries, c.Ingestion.EmbedRetryDelay),
	}, nil
}
