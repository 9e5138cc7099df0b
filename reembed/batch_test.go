package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/ragask/ai/mock"
	"github.com/poiesic/ragask/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unnormalized(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0} // magnitude 3
	}
	return result, nil
}

func TestEmbedChunks(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes vectors", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = unnormalized
		chunks := []*core.Chunk{{Content: "a"}, {Content: "b"}}

		require.NoError(t, EmbedChunks(ctx, embedder, chunks, 1, time.Millisecond))
		for _, chunk := range chunks {
			assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3, 2.0 / 3}, chunk.Vector, 1e-6)
		}
		assert.Equal(t, []string{"a", "b"}, embedder.Texts())
		assert.Equal(t, 1, embedder.CallCount())
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		require.NoError(t, EmbedChunks(ctx, embedder, nil, 1, time.Millisecond))
		assert.Equal(t, 0, embedder.CallCount())
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		err := EmbedChunks(ctx, embedder, []*core.Chunk{{Content: "a"}, {Content: "b"}}, 1, time.Millisecond)
		assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}, {1, 0, 0}}, nil
		}
		err := EmbedChunks(ctx, embedder, []*core.Chunk{{Content: "a"}, {Content: "b"}}, 1, time.Millisecond)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		attempts := 0
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("rate limited")
			}
			return unnormalized(ctx, texts)
		}
		chunks := []*core.Chunk{{Content: "a"}}
		require.NoError(t, EmbedChunks(ctx, embedder, chunks, 3, time.Millisecond))
		assert.Equal(t, 3, attempts)
		assert.NotEmpty(t, chunks[0].Vector)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("down")
		}
		err := EmbedChunks(ctx, embedder, []*core.Chunk{{Content: "a"}}, 2, time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Equal(t, 2, embedder.CallCount())
	})
}

func TestBatchProcessor_Process(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	added := addChunks(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = unnormalized
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(ctx, added))

	updated, err := repo.GetChunks(ctx, added[0].Id, added[1].Id)
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, chunk := range updated {
		assert.InDelta(t, 1.0, Magnitude(chunk.Vector), 1e-6)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo := setupTestRepo(t)
	embedder := mock.NewMockEmbedder()
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessor_EmbeddingFailureLeavesStoreUntouched(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	added := addChunks(t, repo, 1)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("down")
	}
	processor := NewBatchProcessor(repo, embedder, 1, time.Millisecond)

	require.Error(t, processor.Process(ctx, added))

	stored, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Empty(t, stored.Vector)
}

func TestBatchProcessor_MissingChunk(t *testing.T) {
	repo := setupTestRepo(t)
	processor := NewBatchProcessor(repo, mock.NewMockEmbedder(), 1, time.Millisecond)

	err := processor.Process(context.Background(), []*core.Chunk{{Id: 42, Content: "ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update chunks")
}
