// Copyright 2026 Tessara Systems
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
	"strings"
	"time"

	"github.com/tessara/groundline"
	"github.com/tessara/groundline/ai"
	"github.com/tessara/groundline/core"
	"github.com/tessara/groundline/reembed"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "groundline",
		Usage: "Knowledge ingestion and grounded retrieval for agent workspaces",
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
				Name:   "ingest",
				Usage:  "Ingest a text or Q&A source for an agent",
				Action: ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Display name for the source",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Plain text content to ingest",
					},
					&cli.StringFlag{
						Name:  "question",
						Usage: "Question half of a Q&A source",
					},
					&cli.StringFlag{
						Name:  "answer",
						Usage: "Answer half of a Q&A source",
					},
					&cli.DurationFlag{
						Name:  "wait",
						Usage: "How long to wait for ingestion to finish",
						Value: 2 * time.Minute,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Retrieve chunks relevant to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"k"},
						Usage:   "Maximum number of chunks to return",
						Value:   5,
					},
				),
			},
			{
				Name:   "sources",
				Usage:  "List an agent's sources and their status",
				Action: sourcesCommand,
				Flags:  commonFlags(),
			},
			{
				Name:   "jobs",
				Usage:  "List an agent's ingestion jobs by status",
				Action: jobsCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Job status to list (pending, processing, completed, failed)",
						Value: "pending",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed an agent's stored chunks with the configured embedding model",
				Action: reembedCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Chunk texts per embedding API call",
						Value: reembed.DefaultConfig().BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: reembed.DefaultConfig().ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Retry attempts for failed embedding calls",
						Value: reembed.DefaultConfig().MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for embedding retry backoff",
						Value: reembed.DefaultConfig().RetryDelay,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "tenant",
			Usage:    "Tenant ID",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "agent",
			Usage:    "Agent ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.IntFlag{
			Name:  "embedding-dimensions",
			Usage: "Embedding vector dimensionality",
			Value: 1536,
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "API token for the embedding/judge service",
			Value:   "none",
			EnvVars: []string{"GROUNDLINE_API_TOKEN"},
		},
	}
}

func openPlatform(c *cli.Context) (*groundline.Platform, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimensions(c.Int("embedding-dimensions")),
		ai.WithAPIToken(c.String("api-token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	platform, err := groundline.NewPlatform(c.String("db"), groundline.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open platform: %w", err)
	}
	return platform, nil
}

func buildSource(c *cli.Context) (*core.Source, error) {
	text := c.String("text")
	question := c.String("question")
	answer := c.String("answer")

	source := &core.Source{
		TenantId: core.ID(c.Uint64("tenant")),
		AgentId:  core.ID(c.Uint64("agent")),
		Status:   core.SourceStatusPending,
		Name:     c.String("name"),
	}

	switch {
	case text != "" && (question != "" || answer != ""):
		return nil, fmt.Errorf("--text and --question/--answer are mutually exclusive")
	case text != "":
		source.Kind = core.SourceKindText
		source.Spec = core.TextSpec{Content: text}
	case question != "" && answer != "":
		source.Kind = core.SourceKindQA
		source.Spec = core.QASpec{Question: question, Answer: answer}
	default:
		return nil, fmt.Errorf("either --text or both --question and --answer are required")
	}

	return source, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	source, err := buildSource(c)
	if err != nil {
		return err
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	stored, job, err := platform.IngestSource(ctx, source)
	if err != nil {
		return fmt.Errorf("failed to queue ingestion: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Source %d queued (job %d)\n", stored.Id, job.Id)

	deadline := time.Now().Add(c.Duration("wait"))
	for time.Now().Before(deadline) {
		current, err := platform.JobRepository().GetJob(ctx, job.Id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			final, err := platform.SourceRepository().GetSource(ctx, stored.Id)
			if err != nil {
				return err
			}
			if final.Status == core.SourceStatusReady {
				fmt.Printf("Source %d ready: %d chunks\n", final.Id, final.ChunkCount)
				return nil
			}
			return fmt.Errorf("ingestion failed: %s", final.ErrorMessage)
		}
		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("timed out waiting for job %d", job.Id)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query argument is required")
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	results, err := platform.Search(context.Background(),
		core.ID(c.Uint64("tenant")), core.ID(c.Uint64("agent")), query, c.Int("max-hits"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching chunks.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. [%.3f] %s (%s", i+1, result.Score, result.SourceName, result.SourceKind)
		if result.URL != "" {
			fmt.Printf(", %s", result.URL)
		}
		if result.PageNumber > 0 {
			fmt.Printf(", p.%d", result.PageNumber)
		}
		fmt.Printf(", chunk %d)\n", result.Ordinal)
		fmt.Printf("   %s\n", result.Content)
	}
	return nil
}

func sourcesCommand(c *cli.Context) error {
	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	sources, err := platform.SourceRepository().ListSourcesByAgent(context.Background(),
		core.ID(c.Uint64("tenant")), core.ID(c.Uint64("agent")))
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("No sources.")
		return nil
	}

	for _, source := range sources {
		fmt.Printf("%d\t%s\t%s\t%s", source.Id, source.Kind, source.Status, source.Name)
		switch source.Status {
		case core.SourceStatusReady:
			fmt.Printf("\t%d chunks", source.ChunkCount)
		case core.SourceStatusError:
			fmt.Printf("\t%s", source.ErrorMessage)
		}
		fmt.Println()
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	var status core.JobStatus
	switch strings.ToLower(c.String("status")) {
	case "pending":
		status = core.JobStatusPending
	case "processing":
		status = core.JobStatusProcessing
	case "completed":
		status = core.JobStatusCompleted
	case "failed":
		status = core.JobStatusFailed
	default:
		return fmt.Errorf("invalid job status %q: must be one of pending, processing, completed, failed", c.String("status"))
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	jobs, err := platform.JobRepository().ListJobsByStatus(context.Background(), status)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	tenantID := core.ID(c.Uint64("tenant"))
	agentID := core.ID(c.Uint64("agent"))

	shown := 0
	for _, job := range jobs {
		if job.TenantId != tenantID || job.AgentId != agentID {
			continue
		}
		shown++
		fmt.Printf("%d\tsource %d\t%s\t%d%%\tattempt %d/%d",
			job.Id, job.SourceId, job.Status, job.Progress, job.AttemptCount, job.MaxAttempts)
		if job.LastError != "" {
			fmt.Printf("\t%s", job.LastError)
		}
		fmt.Println()
	}
	if shown == 0 {
		fmt.Printf("No %s jobs.\n", status)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	reembedder, err := reembed.NewReembedder(
		platform.SourceRepository(),
		platform.ChunkRepository(),
		platform.Provider().Embedder(),
		c.String("embedding-model"),
		config,
		os.Stderr,
	)
	if err != nil {
		return err
	}

	return reembedder.Run(context.Background(),
		core.ID(c.Uint64("tenant")), core.ID(c.Uint64("agent")))
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
