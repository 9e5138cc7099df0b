package storage

import (
	"context"

	"github.com/poiesic/ragask/core"
)

// VectorSearcher retrieves chunks whose embeddings are similar to a query vector.
// Implementations must be safe for concurrent use.
type VectorSearcher interface {
	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// ChunkStore is a vector store that can both be searched and populated.
type ChunkStore interface {
	VectorSearcher

	// AddChunks stores one or more embedded chunks.
	// Sets InsertedAt if not already set. Backends that assign their own
	// identifiers populate Id on the returned chunks.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// Close releases resources held by the store.
	Close() error
}

// ChunkRepository is a ChunkStore with full record management, used by
// the local store and the re-embedding tool.
type ChunkRepository interface {
	ChunkStore

	// UpdateChunks replaces existing chunks.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// DeleteChunks removes chunks by their IDs.
	// Returns ErrNotFound if any chunk doesn't exist.
	DeleteChunks(ctx context.Context, ids ...core.ID) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// ListChunks returns up to limit chunks ordered by ID, skipping the first offset.
	ListChunks(ctx context.Context, offset, limit int) ([]*core.Chunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}
