// Copyright 2026 Origin Steward Authors
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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/origin-steward/steward"
	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/config"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/inbox"
	"github.com/origin-steward/steward/reembed"
	"github.com/origin-steward/steward/search"
	"github.com/origin-steward/steward/server"
)

func main() {
	app := &cli.App{
		Name:  "steward",
		Usage: "Personal knowledge capture, extraction, and semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "daemon",
				Usage:  "Watch the inbox, ingest drops, and serve the HTTP API",
				Action: daemonCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-http",
						Usage: "Run ingestion only, without the HTTP API",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the search and stats HTTP API without ingestion",
				Action: serveCommand,
			},
			{
				Name:      "search",
				Usage:     "Search stored artifacts",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Require a tag on every result (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "Restrict to artifact types (article, social-post, note, image-ref)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show ingestion and store statistics",
				Action: statsCommand,
			},
			{
				Name:      "drop",
				Usage:     "Write a drop record into the inbox",
				ArgsUsage: "<payload>",
				Action:    dropCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Drop type (url, tweet, text, image)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Optional free-text note attached to the drop",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for every stored artifact",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (defaults to the configured model)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of artifacts to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N artifacts",
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

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openSteward(cfg config.Config) (*steward.Steward, error) {
	return steward.NewSteward(cfg.Paths.Database, cfg.Paths.Blobs,
		steward.WithAIConfig(ai.NewConfig(
			ai.WithHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
		)))
}

func daemonCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	s, err := openSteward(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	source, err := inbox.NewDirSource(cfg.Paths.Inbox, cfg.Paths.Archive, cfg.Paths.ErrorDir)
	if err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}
	defer source.Close()

	extractTimeout := time.Duration(cfg.Ingestion.ExtractTimeoutSec) * time.Second
	dispatcher, err := s.NewDispatcher(source, extractTimeout)
	if err != nil {
		return fmt.Errorf("failed to build dispatcher: %w", err)
	}
	defer dispatcher.Release()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !c.Bool("no-http") {
		searcher, err := s.NewSearcher()
		if err != nil {
			return err
		}
		api, err := server.NewServer(searcher, s.DropRepository(), s.ArtifactRepository())
		if err != nil {
			return err
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
			if err := api.ListenAndServe(addr); err != nil {
				slog.Error("http api stopped", "err", err)
				cancel()
			}
		}()
	}

	slog.Info("steward daemon started",
		"inbox", cfg.Paths.Inbox, "db", cfg.Paths.Database, "model", cfg.Embedding.Model)

	if err := dispatcher.Run(ctx); err != nil {
		return fmt.Errorf("ingestion stopped: %w", err)
	}
	slog.Info("steward daemon stopped")
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	s, err := openSteward(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	searcher, err := s.NewSearcher()
	if err != nil {
		return err
	}
	api, err := server.NewServer(searcher, s.DropRepository(), s.ArtifactRepository())
	if err != nil {
		return err
	}

	return api.ListenAndServe(fmt.Sprintf(":%d", cfg.HTTP.Port))
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	s, err := openSteward(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	searcher, err := s.NewSearcher()
	if err != nil {
		return err
	}

	filters := &search.Filters{Tags: c.StringSlice("tag")}
	for _, t := range c.StringSlice("type") {
		filters.Types = append(filters.Types, core.ArtifactType(t))
	}

	results, err := searcher.Search(context.Background(), query, c.Int("limit"), filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, result := range results {
		a := result.Artifact
		fmt.Printf("%2d. [%.3f] %s (%s, %s)\n", i+1, result.Score,
			titleOrContent(a), a.Type, a.CreatedAt.Format("2006-01-02"))
		if a.SourceURL != "" {
			fmt.Printf("    %s\n", a.SourceURL)
		}
		fmt.Printf("    %s\n", truncate(a.Content, 160))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	s, err := openSteward(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()

	statusCounts, err := s.DropRepository().CountDropsByStatus(ctx)
	if err != nil {
		return err
	}
	artifactCount, err := s.ArtifactRepository().CountArtifacts(ctx)
	if err != nil {
		return err
	}
	lastReceived, err := s.DropRepository().LastReceivedAt(ctx)
	if err != nil {
		return err
	}
	daily, err := s.DropRepository().GetDailyDropCounts(ctx, 30)
	if err != nil {
		return err
	}

	fmt.Printf("Artifacts: %d\n", artifactCount)
	fmt.Println("Drops:")
	for _, status := range []core.DropStatus{core.StatusPending, core.StatusProcessing, core.StatusCompleted, core.StatusFailed} {
		fmt.Printf("  %-10s %d\n", status.String(), statusCounts[status])
	}
	if lastReceived.IsZero() {
		fmt.Println("Last drop: never")
	} else {
		fmt.Printf("Last drop: %s\n", lastReceived.Format(time.RFC3339))
	}

	fmt.Println("Last 30 days:")
	for _, bucket := range daily {
		if bucket.Count == 0 {
			continue
		}
		fmt.Printf("  %s %d\n", bucket.Date, bucket.Count)
	}
	return nil
}

func dropCommand(c *cli.Context) error {
	payload := strings.Join(c.Args().Slice(), " ")
	if payload == "" {
		return fmt.Errorf("payload is required")
	}

	dropType := c.String("type")
	switch dropType {
	case "url", "tweet", "text", "image":
	default:
		return fmt.Errorf("invalid drop type %q: must be one of url, tweet, text, image", dropType)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.Inbox, 0o755); err != nil {
		return err
	}

	record := map[string]any{
		"type":      dropType,
		"payload":   payload,
		"timestamp": time.Now().Unix(),
	}
	if note := c.String("note"); note != "" {
		record["note"] = note
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("drop-%d.json", time.Now().UnixNano())
	path := filepath.Join(cfg.Paths.Inbox, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write drop: %w", err)
	}

	fmt.Printf("Dropped %s into %s\n", dropType, path)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.Embedding.Model = model
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

	s, err := openSteward(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", cfg.Paths.Database)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(os.Stderr)

	reembedder := s.NewReembedder(reembedConfig, os.Stderr)
	if err := reembedder.Run(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func titleOrContent(a *core.Artifact) string {
	if a.Title != "" {
		return a.Title
	}
	return truncate(a.Content, 60)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
