package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/storage"
	"github.com/timshannon/badgerhold/v4"
)

// chunkRepository implements storage.ChunkRepository on top of badgerhold.
type chunkRepository struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.ChunkRepository = (*chunkRepository)(nil)

// NewRepository opens (or creates) a chunk repository in the given directory.
// Closing the repository closes the database.
func NewRepository(path string) (storage.ChunkRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	repo := newChunkRepository(backend)
	repo.ownsBackend = true
	return repo, nil
}

// NewChunkRepository creates a chunk repository on an already open backend.
// The caller remains responsible for closing the backend.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return newChunkRepository(backend), nil
}

func newChunkRepository(backend *Backend) *chunkRepository {
	return &chunkRepository{
		backend: backend,
		logger:  slog.Default().With("component", "chunk-repository"),
	}
}

func (r *chunkRepository) checkOpen() error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// AddChunks stores chunks under content-derived IDs. Storing a chunk that
// already exists replaces its vector and keeps its original InsertedAt.
func (r *chunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if chunk.Id == 0 {
			chunk.Id = core.ChunkID(chunk.Source, chunk.Content)
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		chunk.UpdatedAt = now
	}

	store := r.backend.Store()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			var existing core.Chunk
			err := store.TxGet(tx, chunk.Id, &existing)
			switch {
			case err == nil:
				chunk.InsertedAt = existing.InsertedAt
			case !errors.Is(err, badgerhold.ErrNotFound):
				return err
			}
			if err := store.TxUpsert(tx, chunk.Id, chunk); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
		}
		return nil
	}, true)
	if err != nil {
		r.logger.Error("failed to add chunks", "count", len(chunks), "err", err)
		return nil, err
	}

	r.logger.Debug("added chunks", "count", len(chunks))
	return chunks, nil
}

// UpdateChunks replaces existing chunks and refreshes UpdatedAt.
func (r *chunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	store := r.backend.Store()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk == nil {
				return core.ErrInvalidChunk
			}
			var existing core.Chunk
			if err := store.TxGet(tx, chunk.Id, &existing); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, chunk.Id)
				}
				return err
			}
			if chunk.InsertedAt.IsZero() {
				chunk.InsertedAt = existing.InsertedAt
			}
			chunk.UpdatedAt = now
			if err := store.TxUpdate(tx, chunk.Id, chunk); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// DeleteChunks removes chunks by ID.
func (r *chunkRepository) DeleteChunks(ctx context.Context, ids ...core.ID) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	store := r.backend.Store()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			var existing core.Chunk
			if err := store.TxGet(tx, id, &existing); err != nil {
				if errors.Is(err, badgerhold.ErrNotFound) {
					return fmt.Errorf("%w: chunk %d", storage.ErrNotFound, id)
				}
				return err
			}
			if err := store.TxDelete(tx, id, &core.Chunk{}); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *chunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	var chunk core.Chunk
	if err := r.backend.Store().Get(id, &chunk); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: chunk %d", storage.ErrNotFound, id)
		}
		return nil, err
	}
	return &chunk, nil
}

// GetChunks retrieves the chunks that exist among ids.
func (r *chunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	chunks := make([]*core.Chunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := r.GetChunk(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// ListChunks returns a page of chunks ordered by ID.
func (r *chunkRepository) ListChunks(ctx context.Context, offset, limit int) ([]*core.Chunk, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", storage.ErrInvalidQuery)
	}

	var all []core.Chunk
	if err := r.backend.Store().Find(&all, nil); err != nil {
		return nil, err
	}
	slices.SortFunc(all, func(a, b core.Chunk) int {
		switch {
		case a.Id < b.Id:
			return -1
		case a.Id > b.Id:
			return 1
		}
		return 0
	})

	if offset >= len(all) {
		return []*core.Chunk{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]*core.Chunk, 0, end-offset)
	for i := offset; i < end; i++ {
		page = append(page, &all[i])
	}
	return page, nil
}

// Count returns the number of stored chunks.
func (r *chunkRepository) Count(ctx context.Context) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	count, err := r.backend.Store().Count(&core.Chunk{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// FindSimilar scans every stored vector and returns the chunks whose cosine
// similarity to vector is at least minSimilarity, most similar first. Chunks
// whose dimensions differ from vector never match. Equal scores are ordered
// by chunk ID.
func (r *chunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.SearchResult
	err := r.backend.Store().ForEach(nil, func(chunk *core.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(chunk.Vector) == 0 || len(chunk.Vector) != len(vector) {
			return nil
		}
		similarity := cosineSimilarity(vector, chunk.Vector)
		if similarity >= minSimilarity {
			match := *chunk
			results = append(results, &core.SearchResult{
				Chunk: &match,
				Score: similarity,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return cmp.Compare(a.Chunk.Id, b.Chunk.Id)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	r.logger.Debug("similarity search complete", "matches", len(results), "threshold", minSimilarity)
	return results, nil
}

// Close closes the database when the repository opened it.
func (r *chunkRepository) Close() error {
	if r.ownsBackend {
		return r.backend.Close()
	}
	return nil
}
