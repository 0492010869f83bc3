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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/derivit"
	"github.com/poiesic/derivit/ai"
	"github.com/poiesic/derivit/ai/openai"
	"github.com/poiesic/derivit/core"
	"github.com/poiesic/derivit/enrich"
	"github.com/poiesic/derivit/queue"
	"github.com/poiesic/derivit/reembed"
	"github.com/poiesic/derivit/search"
)

func main() {
	app := &cli.App{
		Name:  "derivit",
		Usage: "Insight derivation subsystem for coding-assistant memory stores",
		Flags: []cli.Flag{
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
				Name:   "worker",
				Usage:  "Run a worker pool processing queued derivation tasks",
				Action: workerCommand,
				Flags: []cli.Flag{
					dbFlag(),
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
						Name:  "workers",
						Usage: "Number of concurrent workers",
						Value: 4,
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "Delay between claim attempts when the queue is empty",
						Value: 2 * time.Second,
					},
					&cli.StringFlag{
						Name:  "dictionary",
						Usage: "Path to a YAML technology dictionary (defaults compiled in)",
					},
				},
			},
			{
				Name:   "enqueue",
				Usage:  "Enqueue a derivation task",
				Action: enqueueCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "source-type",
						Usage: "Type of the source records",
						Value: "thinking_sequence",
					},
					&cli.StringSliceFlag{
						Name:     "source-id",
						Usage:    "Source record identifier (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "priority",
						Usage: "Task priority (higher = claimed sooner)",
						Value: queue.DefaultPriority,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title for the derived insight",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category for the derived insight",
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Inline source content for the derived insight",
					},
					&cli.StringFlag{
						Name:  "project",
						Usage: "Project identifier",
					},
					&cli.Float64Flag{
						Name:  "confidence",
						Usage: "Initial confidence score",
						Value: 0.5,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show queue statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:  "window",
						Usage: "Stats window in hours",
						Value: 24,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search stored insights",
				Action: searchCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Category filter (repeatable)",
					},
					&cli.Float64Flag{
						Name:  "min-confidence",
						Usage: "Minimum confidence score",
					},
					&cli.StringFlag{
						Name:  "project",
						Usage: "Project identifier filter",
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Full-text relevance query",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Results to skip",
					},
				},
			},
			{
				Name:      "similar",
				Usage:     "Find insights similar to the given insight id",
				Action:    similarCommand,
				ArgsUsage: "<insight-id>",
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum results",
						Value: 5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for all stored insights",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag(),
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
						Usage: "Number of insights to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N insights",
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
			{
				Name:   "seed-patterns",
				Usage:  "Load pattern library entries from a YAML file",
				Action: seedPatternsCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a YAML pattern seed file",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
}

func openDatabase(c *cli.Context, opts ...derivit.DatabaseOption) (*derivit.Database, error) {
	return derivit.NewDatabase(c.String("db"), opts...)
}

func workerCommand(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []derivit.DatabaseOption{derivit.WithAIConfig(aiConfig)}
	if path := c.String("dictionary"); path != "" {
		dict, rules, err := enrich.LoadDictionary(path)
		if err != nil {
			return fmt.Errorf("loading dictionary: %w", err)
		}
		opts = append(opts, derivit.WithTechnologyDictionary(dict), derivit.WithStackRules(rules))
	}

	db, err := openDatabase(c, opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pool, err := db.NewWorkerPool(
		queue.WithWorkers(c.Int("workers")),
		queue.WithPollInterval(c.Duration("poll-interval")),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	slog.Info("worker pool running", "workers", c.Int("workers"), "db", c.String("db"))
	<-ctx.Done()

	slog.Info("shutting down")
	pool.Stop()
	return nil
}

func enqueueCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	payload := map[string]string{}
	if v := c.String("title"); v != "" {
		payload[derivit.PayloadTitle] = v
	}
	if v := c.String("category"); v != "" {
		payload[derivit.PayloadCategory] = v
	}
	if v := c.String("content"); v != "" {
		payload[derivit.PayloadContent] = v
	}
	if v := c.String("project"); v != "" {
		payload[derivit.PayloadProjectId] = v
	}
	payload[derivit.PayloadConfidence] = fmt.Sprintf("%g", c.Float64("confidence"))

	task, err := db.EnqueueTask(context.Background(), &core.Task{
		Type:       derivit.TaskTypeThinkingSequence,
		Priority:   c.Int("priority"),
		SourceType: c.String("source-type"),
		SourceIds:  c.StringSlice("source-id"),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	fmt.Printf("enqueued task %d (priority %d)\n", task.Id, task.Priority)
	return nil
}

func statsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.QueueStats(context.Background(), c.Int("window"))
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("window: %dh\n", c.Int("window"))
	fmt.Printf("pending:    %d\n", stats.Pending)
	fmt.Printf("processing: %d\n", stats.Processing)
	fmt.Printf("completed:  %d\n", stats.Completed)
	fmt.Printf("failed:     %d\n", stats.Failed)
	fmt.Printf("avg duration: %.1fs\n", stats.AvgDurationSeconds)
	return nil
}

func searchCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	results, total, err := db.Search(context.Background(), search.Criteria{
		Categories:    c.StringSlice("category"),
		MinConfidence: c.Float64("min-confidence"),
		ProjectId:     c.String("project"),
		SearchText:    c.String("text"),
	}, search.Options{
		Limit:  c.Int("limit"),
		Offset: c.Int("offset"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("%d of %d results\n", len(results), total)
	for _, insight := range results {
		fmt.Printf("%d [%.2f] %s/%s: %s\n",
			insight.Id, insight.ConfidenceScore, insight.Category, insight.Type, insight.Title)
		if insight.Summary != "" {
			fmt.Printf("    %s\n", insight.Summary)
		}
	}
	return nil
}

func similarCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one insight id argument")
	}
	var id core.ID
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return fmt.Errorf("invalid insight id %q", c.Args().First())
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	results, err := db.FindSimilar(context.Background(), id, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("similarity lookup failed: %w", err)
	}

	fmt.Printf("%d similar insights\n", len(results))
	for _, hit := range results {
		fmt.Printf("%d [%.4f] %s\n", hit.Id, hit.Distance, hit.Title)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
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

	embedder, err := openai.NewEmbedder(aiConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	db, err := openDatabase(c, derivit.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	reembedder := reembed.NewReembedder(db.InsightRepository(), embedder, reembedConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(context.Background()); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func seedPatternsCommand(c *cli.Context) error {
	patterns, err := loadPatternSeeds(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to load pattern seeds: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	seeded, err := db.SeedPatterns(context.Background(), patterns...)
	if err != nil {
		return fmt.Errorf("failed to seed patterns: %w", err)
	}

	fmt.Printf("seeded %d patterns\n", len(seeded))
	return nil
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
