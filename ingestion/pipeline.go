package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/reembed"
	"github.com/poiesic/ragask/storage"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultPoolSize     = 5
	DefaultBatchSize    = 20
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = time.Second
)

// Pipeline splits documents into chunks, embeds them and stores them.
// Batches are embedded and stored concurrently on a bounded worker pool.
type Pipeline struct {
	store        storage.ChunkStore
	embedder     ai.Embedder
	pool         *ants.Pool
	splitter     textsplitter.TextSplitter
	poolSize     int
	batchSize    int
	chunkSize    int
	chunkOverlap int
	maxRetries   int
	retryDelay   time.Duration
	progress     io.Writer
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithPoolSize sets the number of batches processed concurrently.
// Values below 1 are raised to 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		p.poolSize = max(size, 1)
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per EmbedTexts call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidBatchSize, size)
		}
		p.batchSize = size
		return nil
	}
}

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size %d", ErrInvalidChunkSize, size)
		}
		p.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets how many characters consecutive chunks share.
func WithChunkOverlap(overlap int) Option {
	return func(p *Pipeline) error {
		if overlap < 0 {
			return fmt.Errorf("%w: overlap %d", ErrInvalidChunkSize, overlap)
		}
		p.chunkOverlap = overlap
		return nil
	}
}

// WithRetry sets the attempt limit and base backoff delay for embedding calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return reembed.ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithProgress writes ingestion progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline writing to store.
// Call Release when done to stop the worker pool.
func NewPipeline(store storage.ChunkStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:        store,
		embedder:     embedder,
		poolSize:     DefaultPoolSize,
		batchSize:    DefaultBatchSize,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		logger:       slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.chunkOverlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunkSize, p.chunkOverlap, p.chunkSize)
	}

	p.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(p.chunkSize),
		textsplitter.WithChunkOverlap(p.chunkOverlap),
	)

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	return p, nil
}

// Split breaks documents into chunks. Blank chunks are dropped, as are
// repeats of a chunk already produced for the same source.
func (p *Pipeline) Split(docs ...Document) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	seen := make(map[core.ID]bool)
	for _, doc := range docs {
		parts, err := p.splitter.SplitText(doc.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Source, err)
		}
		for _, part := range parts {
			if isBlank(part) {
				continue
			}
			id := core.ChunkID(doc.Source, part)
			if seen[id] {
				continue
			}
			seen[id] = true
			chunks = append(chunks, &core.Chunk{Source: doc.Source, Content: part})
		}
	}
	return chunks, nil
}

// Ingest splits, embeds and stores the documents. Every batch is attempted;
// the first batch error is returned once all of them have finished, along
// with the number of chunks that were stored.
func (p *Pipeline) Ingest(ctx context.Context, docs ...Document) (int, error) {
	chunks, err := p.Split(docs...)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		p.logger.Info("nothing to ingest", "documents", len(docs))
		return 0, nil
	}

	var tracker *reembed.ProgressTracker
	if p.progress != nil {
		tracker = reembed.NewProgressTracker(p.progress, "Ingesting", len(chunks), p.batchSize)
		tracker.Start()
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		stored   int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			n, err := p.storeBatch(ctx, batch)
			if err != nil {
				p.logger.Error("failed to ingest batch", "offset", start, "size", len(batch), "err", err)
				fail(err)
				return
			}
			mu.Lock()
			stored += n
			mu.Unlock()
			if tracker != nil {
				tracker.Increment(n)
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit batch at offset %d: %w", start, err))
			break
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	p.logger.Info("ingested documents", "documents", len(docs), "chunks", len(chunks), "stored", stored)
	return stored, firstErr
}

func (p *Pipeline) storeBatch(ctx context.Context, batch []*core.Chunk) (int, error) {
	if err := reembed.EmbedChunks(ctx, p.embedder, batch, p.maxRetries, p.retryDelay); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	added, err := p.store.AddChunks(ctx, batch...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return len(added), nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
