package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/ragask"
	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/ingestion"
	"github.com/poiesic/ragask/rag"
	"github.com/poiesic/ragask/reembed"
	"github.com/urfave/cli/v2"
)

// openAssistant builds the Assistant from the global flags. Tests replace it
// to inject doubles.
var openAssistant = func(c *cli.Context) (*ragask.Assistant, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("openai-host")),
		ai.WithAPIKey(c.String("openai-api-key")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithTemperature(c.Float64("temperature")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return ragask.New(
		ragask.WithAIConfig(aiConfig),
		ragask.WithStoreConfig(&ragask.StoreConfig{
			Kind: c.String("store"),
			URL:  c.String("supabase-url"),
			Key:  c.String("supabase-key"),
			DSN:  c.String("dsn"),
			Path: c.String("db"),
		}),
	)
}

// commandContext applies the global --timeout, if any.
func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	if timeout := c.Duration("timeout"); timeout > 0 {
		return context.WithTimeout(c.Context, timeout)
	}
	return context.WithCancel(c.Context)
}

func newAnswerer(c *cli.Context, a *ragask.Assistant, extra ...rag.Option) (*rag.Answerer, error) {
	opts := append([]rag.Option{
		rag.WithMatchThreshold(float32(c.Float64("match-threshold"))),
		rag.WithMatchCount(c.Int("match-count")),
	}, extra...)
	return a.NewAnswerer(opts...)
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		question = defaultQuestion
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	answerer, err := newAnswerer(c, a)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	answer, err := answerer.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("error processing query: %w", err)
	}
	fmt.Fprintln(c.App.Writer, answer)
	return nil
}

func batchCommand(c *cli.Context) error {
	lines, err := ingestion.LoadLines(c.String("questions"))
	if err != nil {
		return fmt.Errorf("failed to read questions: %w", err)
	}
	var questions []string
	for line, err := range lines {
		if err != nil {
			return fmt.Errorf("failed to read questions: %w", err)
		}
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", c.String("questions"))
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	answerer, err := newAnswerer(c, a, rag.WithPoolSize(c.Int("concurrency")))
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	results, err := answerer.AnswerAll(ctx, questions)
	if err != nil {
		return err
	}

	var failed int
	for _, result := range results {
		fmt.Fprintf(c.App.Writer, "Q: %s\n", result.Query)
		if result.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "error processing query %q: %v\n", result.Query, result.Err)
			fmt.Fprintln(c.App.Writer)
			continue
		}
		fmt.Fprintf(c.App.Writer, "A: %s\n\n", result.Answer)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d questions failed", failed, len(results))
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	paths := c.Args().Slice()
	baseURL := c.String("url")
	if len(paths) == 0 && baseURL == "" {
		return errors.New("nothing to ingest: pass file paths or --url")
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	var docs []ingestion.Document
	for _, path := range paths {
		doc, err := ingestion.LoadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	if baseURL != "" {
		pages, err := ingestion.NewCrawler(c.Int("max-pages")).Crawl(ctx, baseURL)
		if err != nil {
			return fmt.Errorf("failed to crawl %s: %w", baseURL, err)
		}
		for _, page := range pages {
			docs = append(docs, page.Document())
		}
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.NewIngestionPipeline(
		ingestion.WithChunkSize(c.Int("chunk-size")),
		ingestion.WithChunkOverlap(c.Int("chunk-overlap")),
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("concurrency")),
		ingestion.WithProgress(c.App.ErrWriter),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	stored, err := pipeline.Ingest(ctx, docs...)
	fmt.Fprintf(c.App.Writer, "Stored %d chunks from %d documents\n", stored, len(docs))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func scrapeCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: %s scrape BASE_URL OUTPUT_FILE", c.App.Name)
	}
	baseURL, output := c.Args().Get(0), c.Args().Get(1)

	ctx, cancel := commandContext(c)
	defer cancel()

	pages, err := ingestion.NewCrawler(c.Int("max-pages")).Crawl(ctx, baseURL)
	if err != nil {
		return err
	}
	if err := ingestion.WriteLines(output, ingestion.Lines(pages)); err != nil {
		return fmt.Errorf("failed to save %s: %w", output, err)
	}

	fmt.Fprintf(c.App.Writer, "Documentation scraping completed and saved to %s.\n", output)
	return nil
}

func reembedCommand(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	reembedder, err := a.NewReembedder(config, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", c.String("db"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n\n", c.String("embedding-model"))

	ctx, cancel := commandContext(c)
	defer cancel()

	if _, err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func initSchemaCommand(c *cli.Context) error {
	a, err := openAssistant(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(c)
	defer cancel()

	if err := a.InitSchema(ctx, c.Int("dimensions")); err != nil {
		return fmt.Errorf("failed to install schema: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "Schema installed")
	return nil
}
