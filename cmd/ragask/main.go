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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/ragask"
	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/ingestion"
	"github.com/poiesic/ragask/rag"
	"github.com/poiesic/ragask/reembed"
	"github.com/urfave/cli/v2"
)

// defaultQuestion is asked when ask is run without arguments.
const defaultQuestion = "What is the objective of polygon"

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "ragask",
		Usage:    "Answer questions about a documentation corpus",
		Flags:    globalFlags(),
		Before:   setupLogger,
		Commands: commands(),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Chunk store backend (supabase, postgres, badger)",
			Value: ragask.StoreSupabase,
		},
		&cli.StringFlag{
			Name:    "supabase-url",
			Usage:   "Supabase project URL",
			EnvVars: []string{"SUPABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "supabase-key",
			Usage:   "Supabase API key",
			EnvVars: []string{"SUPABASE_ANON_KEY"},
		},
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "Postgres connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   ragask.DefaultBadgerPath,
		},
		&cli.StringFlag{
			Name:    "openai-host",
			Usage:   "OpenAI-compatible API base URL",
			EnvVars: []string{"OPENAI_BASE_URL"},
			Value:   ai.DefaultHost,
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "OpenAI API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: ai.DefaultEmbeddingModel,
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat completion model name",
			Value: ai.DefaultChatModel,
		},
		&cli.Float64Flag{
			Name:  "temperature",
			Usage: "Sampling temperature for answers",
			Value: ai.DefaultTemperature,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Overall time limit for the command (0 for none)",
		},
	}
}

func answerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:  "match-threshold",
			Usage: "Minimum similarity of retrieved chunks",
			Value: float64(rag.DefaultMatchThreshold),
		},
		&cli.IntFlag{
			Name:  "match-count",
			Usage: "Maximum number of retrieved chunks",
			Value: rag.DefaultMatchCount,
		},
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "ask",
			Usage:     "Answer a question from the stored documentation",
			ArgsUsage: "[question...]",
			Action:    askCommand,
			Flags:     answerFlags(),
		},
		{
			Name:   "batch",
			Usage:  "Answer every question in a file, one per line",
			Action: batchCommand,
			Flags: append(answerFlags(),
				&cli.StringFlag{
					Name:     "questions",
					Aliases:  []string{"q"},
					Usage:    "File with one question per line",
					Required: true,
				},
				&cli.IntFlag{
					Name:  "concurrency",
					Usage: "Number of questions answered at once",
					Value: rag.DefaultPoolSize,
				},
			),
		},
		{
			Name:      "ingest",
			Usage:     "Split, embed and store documents",
			ArgsUsage: "[paths...]",
			Action:    ingestCommand,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "url",
					Usage: "Documentation site to crawl and ingest",
				},
				&cli.IntFlag{
					Name:  "max-pages",
					Usage: "Maximum pages to crawl",
					Value: ingestion.DefaultMaxPages,
				},
				&cli.IntFlag{
					Name:  "chunk-size",
					Usage: "Maximum chunk length in characters",
					Value: ingestion.DefaultChunkSize,
				},
				&cli.IntFlag{
					Name:  "chunk-overlap",
					Usage: "Characters shared by consecutive chunks",
					Value: ingestion.DefaultChunkOverlap,
				},
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of chunks embedded per request",
					Value: ingestion.DefaultBatchSize,
				},
				&cli.IntFlag{
					Name:  "concurrency",
					Usage: "Number of batches processed at once",
					Value: ingestion.DefaultPoolSize,
				},
			},
		},
		{
			Name:      "scrape",
			Usage:     "Crawl a documentation site and save its text",
			ArgsUsage: "BASE_URL OUTPUT_FILE",
			Action:    scrapeCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "max-pages",
					Usage: "Maximum pages to crawl",
					Value: ingestion.DefaultMaxPages,
				},
			},
		},
		{
			Name:   "reembed",
			Usage:  "Recompute the embedding of every chunk in the local store",
			Action: reembedCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of chunks to process in each batch",
					Value: reembed.DefaultBatchSize,
				},
				&cli.IntFlag{
					Name:  "report-interval",
					Usage: "Report progress every N chunks",
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
			Name:   "init-schema",
			Usage:  "Install the documents table and match_documents function on postgres",
			Action: initSchemaCommand,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "dimensions",
					Usage: "Embedding vector dimensions",
					Value: 1536,
				},
			},
		},
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
