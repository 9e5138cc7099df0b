package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/storage"
)

// EmbedChunks embeds the content of every chunk in one EmbedTexts call,
// retrying with exponential backoff, and stores the normalized vectors on
// the chunks.
func EmbedChunks(ctx context.Context, embedder ai.Embedder, chunks []*core.Chunk, maxAttempts int, baseDelay time.Duration) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = embedder.EmbedTexts(ctx, texts)
		return err
	}, maxAttempts, baseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", maxAttempts, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(chunks), len(embeddings))
	}
	if err := core.ValidateDimensions(embeddings...); err != nil {
		return err
	}

	for i := range chunks {
		chunks[i].Vector = NormalizeVector(embeddings[i])
	}
	return nil
}

// BatchProcessor re-embeds batches of stored chunks.
type BatchProcessor struct {
	repo           storage.ChunkRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding API call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ChunkRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the chunks and writes the new vectors back to the repository.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := EmbedChunks(ctx, bp.embedder, chunks, bp.maxRetries, bp.retryBaseDelay); err != nil {
		return err
	}

	if _, err := bp.repo.UpdateChunks(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
