package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/mimesis/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes the app against a fresh database directory and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &out
	base := []string{
		"mimesis",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--db", filepath.Join(dir, "db"),
		"--log-level", "error",
	}
	err := app.Run(append(base, args...))
	return out.String(), err
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestReembedCommandFlags(t *testing.T) {
	app := newApp(&bytes.Buffer{})
	cmd := findCommand(t, app, "reembed")

	t.Run("embedding-host has default value", func(t *testing.T) {
		var hostFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "embedding-host" {
				hostFlag = f
				break
			}
		}
		require.NotNil(t, hostFlag)
		assert.Equal(t, "http://localhost:11434/v1", hostFlag.Value)
		assert.Empty(t, hostFlag.EnvVars)
	})

	t.Run("embedding-model is required with no default", func(t *testing.T) {
		var modelFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "embedding-model" {
				modelFlag = f
				break
			}
		}
		require.NotNil(t, modelFlag)
		assert.Empty(t, modelFlag.Value)
		assert.True(t, modelFlag.Required)
	})

	t.Run("int flags have defaults", func(t *testing.T) {
		defaults := map[string]int{"batch-size": 100, "report-interval": 100, "max-retries": 3}
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok {
				want, found := defaults[f.Name]
				require.True(t, found, f.Name)
				assert.Equal(t, want, f.Value, f.Name)
				delete(defaults, f.Name)
			}
		}
		assert.Empty(t, defaults)
	})
}

func TestReembedCommandValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing embedding-model flag fails", func(t *testing.T) {
		_, err := run(t, dir, "reembed", "--persona", "Ada")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("missing persona flag fails", func(t *testing.T) {
		_, err := run(t, dir, "reembed", "--embedding-model", "test-model")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "persona")
	})

	t.Run("non-positive batch size fails", func(t *testing.T) {
		_, err := run(t, dir, "reembed", "--persona", "Ada", "--embedding-model", "m", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size")
	})

	t.Run("unknown persona has no collection", func(t *testing.T) {
		_, err := run(t, dir, "reembed", "--persona", "Nobody", "--embedding-model", "m")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reembedding failed")
	})
}

func TestIngestCommand(t *testing.T) {
	dir := t.TempDir()

	t.Run("persona is required", func(t *testing.T) {
		_, err := run(t, dir, "ingest", "notes.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "persona")
	})

	t.Run("only unsupported files reports the skips", func(t *testing.T) {
		path := filepath.Join(dir, "notes.xyz")
		require.NoError(t, os.WriteFile(path, []byte("some words"), 0o644))

		out, err := run(t, dir, "ingest", "--persona", "Ada", path)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrNoUsableContent)
		assert.Contains(t, out, "Skipped: "+path)
	})

	t.Run("no inputs is no usable content", func(t *testing.T) {
		_, err := run(t, dir, "ingest", "--persona", "Ada")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrNoUsableContent)
	})
}

func TestSessionCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "start", "--owner", "tester")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, err = parseID(id)
	require.NoError(t, err)

	out, err = run(t, dir, "history", "--session", id)
	require.NoError(t, err)
	assert.Empty(t, out)

	t.Run("unknown session", func(t *testing.T) {
		_, err := run(t, dir, "history", "--session", "ffff")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrSessionNotFound)
	})

	t.Run("malformed session ID", func(t *testing.T) {
		_, err := run(t, dir, "history", "--session", "not-hex")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid session ID")
	})
}

func TestChatCommandValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("query is required", func(t *testing.T) {
		_, err := run(t, dir, "chat", "--persona", "Ada")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("unknown persona", func(t *testing.T) {
		_, err := run(t, dir, "chat", "--persona", "Nobody", "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrPersonaNotFound)
	})
}

func TestPersonasCommandEmpty(t *testing.T) {
	out, err := run(t, t.TempDir(), "personas")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestParseID(t *testing.T) {
	id := core.ID(0xdeadbeef)
	parsed, err := parseID(formatID(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = parseID("0x10")
	require.NoError(t, err)
	assert.Equal(t, core.ID(16), parsed)
}

func TestSetupLogger(t *testing.T) {
	newLoggerApp := func(action cli.ActionFunc) *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: action,
		}
	}
	noop := func(c *cli.Context) error { return nil }

	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				err := newLoggerApp(noop).Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
				assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
				assert.False(t, slog.Default().Enabled(t.Context(), tc.expected-1))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				err := newLoggerApp(noop).Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp(noop).Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newLoggerApp(func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}).Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}
