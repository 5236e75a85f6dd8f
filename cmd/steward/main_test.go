package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/origin-steward/steward/core"
)

func TestSetupLogger(t *testing.T) {
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
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: tc.input},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}

				err := app.Run([]string{"test", "--log-level", tc.input})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "log-level", Value: "info"},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}

				err := app.Run([]string{"test", "--log-level", tc})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestDropCommand(t *testing.T) {
	newApp := func(configPath string) *cli.App {
		return &cli.App{
			Name: "steward",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "config", Value: configPath},
				&cli.StringFlag{Name: "log-level", Value: "info"},
			},
			Before: setupLogger,
			Commands: []*cli.Command{
				{
					Name:      "drop",
					ArgsUsage: "<payload>",
					Action:    dropCommand,
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "text"},
						&cli.StringFlag{Name: "note"},
					},
				},
			},
		}
	}

	t.Run("writes a schema-valid drop record", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath,
			[]byte("paths:\n  data_dir: "+dir+"\n"), 0o644))

		app := newApp(configPath)
		err := app.Run([]string{"steward", "drop", "--type", "url", "https://example.com"})
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(dir, "inbox"))
		require.NoError(t, err)
		require.Len(t, entries, 1)

		data, err := os.ReadFile(filepath.Join(dir, "inbox", entries[0].Name()))
		require.NoError(t, err)

		drop, err := core.ParseDropRecord(data, entries[0].Name())
		require.NoError(t, err)
		assert.Equal(t, core.KindURL, drop.Kind)
		assert.Equal(t, "https://example.com", drop.Payload)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		dir := t.TempDir()
		app := newApp(filepath.Join(dir, "config.yaml"))
		err := app.Run([]string{"steward", "drop", "--type", "carrier-pigeon", "hello"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid drop type")
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		dir := t.TempDir()
		app := newApp(filepath.Join(dir, "config.yaml"))
		err := app.Run([]string{"steward", "drop"})
		require.Error(t, err)
	})

	t.Run("note is carried through", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath,
			[]byte("paths:\n  data_dir: "+dir+"\n"), 0o644))

		app := newApp(configPath)
		err := app.Run([]string{"steward", "drop", "--note", "from a meeting", "remember this"})
		require.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(dir, "inbox"))
		require.NoError(t, err)
		require.Len(t, entries, 1)

		data, err := os.ReadFile(filepath.Join(dir, "inbox", entries[0].Name()))
		require.NoError(t, err)

		var record map[string]any
		require.NoError(t, json.Unmarshal(data, &record))
		assert.Equal(t, "from a meeting", record["note"])
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "collapses internal whitespace", truncate("collapses\n  internal\twhitespace", 80))
	assert.Equal(t, "abcde...", truncate("abcdefghij", 5))
}
