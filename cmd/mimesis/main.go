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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/mimesis"
	"github.com/poiesic/mimesis/ai"
	"github.com/poiesic/mimesis/ai/openai"
	"github.com/poiesic/mimesis/chat"
	"github.com/poiesic/mimesis/config"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/extract"
	"github.com/poiesic/mimesis/ingestion"
	"github.com/poiesic/mimesis/reembed"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "mimesis",
		Usage:     "Persona chat agents grounded in a person's own writing",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "mimesis.yaml",
				EnvVars: []string{"MIMESIS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
				EnvVars: []string{"MIMESIS_DB"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the OpenAI-compatible host (overrides config)",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible host for embeddings and generation (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest documents and URLs into a persona",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "persona",
						Aliases:  []string{"p"},
						Usage:    "Persona name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "url",
						Usage: "Web page to ingest (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Replace the persona's indexed chunks instead of appending",
					},
					&cli.DurationFlag{
						Name:  "fetch-timeout",
						Usage: "Timeout for each URL fetch",
						Value: 30 * time.Second,
					},
				},
			},
			{
				Name:   "start",
				Usage:  "Start a chat session and print its ID",
				Action: startCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Session owner",
						Value: "cli",
					},
					&cli.BoolFlag{
						Name:  "no-retrieval",
						Usage: "Answer from the persona description only",
					},
				},
			},
			{
				Name:      "chat",
				Usage:     "Ask a persona a question",
				ArgsUsage: "QUERY",
				Action:    chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "persona",
						Aliases:  []string{"p"},
						Usage:    "Persona name",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Existing session ID; a new session is started when empty",
					},
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Owner of a newly started session",
						Value: "cli",
					},
					&cli.BoolFlag{
						Name:  "show-context",
						Usage: "Print the retrieved context after the reply",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Print the messages of a session",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session ID",
						Required: true,
					},
				},
			},
			{
				Name:   "personas",
				Usage:  "List stored personas",
				Action: personasCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Reembed a persona's chunks with a new embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "persona",
						Aliases:  []string{"p"},
						Usage:    "Persona name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if db := c.String("db"); db != "" {
		cfg.Database.Path = db
	}
	if host := c.String("host"); host != "" {
		cfg.AI.EmbeddingHost = host
		cfg.AI.GeneratorHost = host
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*mimesis.Database, *config.AppConfig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	aiConfig, err := cfg.AIConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	if key := c.String("api-key"); key != "" {
		aiConfig.APIKey = key
	}
	db, err := mimesis.NewDatabase(cfg.Database.Path,
		mimesis.WithAIConfig(aiConfig),
		mimesis.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts, err := cfg.PipelineOptions()
	if err != nil {
		return fmt.Errorf("invalid ingestion configuration: %w", err)
	}
	urls := c.StringSlice("url")
	if len(urls) > 0 {
		extractor, err := extract.New(
			extract.WithFetcher(extract.NewHTTPFetcher(&http.Client{Timeout: c.Duration("fetch-timeout")})),
			extract.WithLogger(slog.Default().With("component", "extractor")),
		)
		if err != nil {
			return err
		}
		opts = append(opts, ingestion.WithExtractor(extractor))
	}

	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	docs := make([]extract.Document, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		docs = append(docs, extract.Document{Path: path})
	}

	report, err := pipeline.Ingest(ctx, ingestion.IngestRequest{
		PersonaName: c.String("persona"),
		Documents:   docs,
		URLs:        urls,
		Replace:     c.Bool("replace"),
	})
	if report != nil {
		printReport(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func printReport(w io.Writer, report *ingestion.Report) {
	fmt.Fprintf(w, "Persona: %s\n", report.PersonaName)
	fmt.Fprintf(w, "Collection: %s\n", report.Collection)
	fmt.Fprintf(w, "Sources: %d\n", report.Sources)
	for _, skip := range report.Skipped {
		fmt.Fprintf(w, "Skipped: %s (%v)\n", skip.Origin, skip.Reason)
	}
	fmt.Fprintf(w, "Chunks: %d, indexed: %d\n", report.Chunks, report.Indexed)
	if report.PersonaCreated {
		fmt.Fprintln(w, "Persona created")
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "Warning: %v\n", warning)
	}
}

func startCommand(c *cli.Context) error {
	ctx := context.Background()

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewChatService(nil, chat.WithDefaultConfig(cfg.SessionConfig()))
	if err != nil {
		return err
	}

	sessionConfig := cfg.SessionConfig()
	if c.Bool("no-retrieval") {
		sessionConfig.UseRetrieval = false
	}
	id, err := service.Start(ctx, c.String("owner"), &sessionConfig)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	fmt.Fprintln(c.App.Writer, formatID(id))
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("query is required")
	}

	var sessionID *core.ID
	if s := c.String("session"); s != "" {
		id, err := parseID(s)
		if err != nil {
			return err
		}
		sessionID = &id
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewChatService(nil, chat.WithDefaultConfig(cfg.SessionConfig()))
	if err != nil {
		return err
	}

	resp, err := service.Chat(ctx, chat.Request{
		SessionID:   sessionID,
		Owner:       c.String("owner"),
		Query:       query,
		PersonaName: c.String("persona"),
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	w := c.App.Writer
	if sessionID == nil {
		fmt.Fprintf(c.App.ErrWriter, "Session: %s\n", formatID(resp.SessionID))
	}
	fmt.Fprintln(w, resp.AssistantText)
	if c.Bool("show-context") {
		for i, text := range resp.RetrievedContext {
			fmt.Fprintf(w, "\n[%d] %s\n", i+1, text)
		}
	}
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()

	id, err := parseID(c.String("session"))
	if err != nil {
		return err
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	service, err := db.NewChatService(nil, chat.WithDefaultConfig(cfg.SessionConfig()))
	if err != nil {
		return err
	}
	messages, err := service.History(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	for _, msg := range messages {
		fmt.Fprintf(c.App.Writer, "%s [%s]: %s\n", msg.Timestamp.Format(time.RFC3339), msg.Role, msg.Content)
	}
	return nil
}

func personasCommand(c *cli.Context) error {
	ctx := context.Background()

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	personas, err := db.PersonaRepository().ListPersonas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	for _, p := range personas {
		count, err := db.VectorRepository().CountEntries(ctx, core.CollectionName(p.Name))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s (%d chunks)\n  %s\n", p.Name, count, p.Description)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder, err := db.NewReembedder(embedder, reembedConfig, os.Stderr)
	if err != nil {
		return err
	}

	persona := c.String("persona")
	fmt.Fprintf(os.Stderr, "Persona: %s\n", persona)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx, core.CollectionName(persona)); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

// Session IDs are printed in hex.
func formatID(id core.ID) string {
	return strconv.FormatUint(uint64(id), 16)
}

func parseID(s string) (core.ID, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session ID %q: %w", s, err)
	}
	return core.ID(v), nil
}

func setupLogger(c *cli.Context) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}
