package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/ai/mock"
	"github.com/poiesic/ragask/core"
	"github.com/poiesic/ragask/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetriever is a storage.VectorSearcher with injectable behavior.
type fakeRetriever struct {
	FindSimilarFunc func(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	mu            sync.Mutex
	callCount     int
	lastThreshold float32
	lastLimit     int
	lastVector    []float32
}

func (f *fakeRetriever) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	f.mu.Lock()
	f.callCount++
	f.lastThreshold = minSimilarity
	f.lastLimit = limit
	f.lastVector = vector
	f.mu.Unlock()

	if f.FindSimilarFunc != nil {
		return f.FindSimilarFunc(ctx, vector, minSimilarity, limit)
	}
	return nil, nil
}

func (f *fakeRetriever) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

// recordingMonitor records the sequence of callbacks.
type recordingMonitor struct {
	events      []string
	failedStage Stage
	failedErr   error
	messages    []ai.Message
	answer      string
}

func (m *recordingMonitor) Start(query string) { m.events = append(m.events, "start") }
func (m *recordingMonitor) AfterEmbedding(_ []float32) {
	m.events = append(m.events, "embedded")
}
func (m *recordingMonitor) AfterRetrieval(_ []*core.SearchResult) {
	m.events = append(m.events, "retrieved")
}
func (m *recordingMonitor) AfterPromptBuilt(messages []ai.Message) {
	m.events = append(m.events, "prompt-built")
	m.messages = messages
}
func (m *recordingMonitor) Finish(answer string) {
	m.events = append(m.events, "answered")
	m.answer = answer
}
func (m *recordingMonitor) Failed(stage Stage, err error) {
	m.events = append(m.events, "failed")
	m.failedStage = stage
	m.failedErr = err
}

func newTestAnswerer(t *testing.T, opts ...Option) (*Answerer, *mock.MockEmbedder, *fakeRetriever, *mock.MockGenerator) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	retriever := &fakeRetriever{}
	generator := mock.NewMockGenerator()
	a, err := NewAnswerer(embedder, retriever, generator, opts...)
	require.NoError(t, err)
	return a, embedder, retriever, generator
}

func TestNewAnswerer(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	retriever := &fakeRetriever{}
	generator := mock.NewMockGenerator()

	t.Run("valid configuration", func(t *testing.T) {
		a, err := NewAnswerer(embedder, retriever, generator)
		require.NoError(t, err)
		assert.Equal(t, DefaultMatchThreshold, a.matchThreshold)
		assert.Equal(t, DefaultMatchCount, a.matchCount)
		assert.Equal(t, DefaultPoolSize, a.poolSize)
		assert.Equal(t, DefaultSystemPrompt, a.systemPrompt)
	})

	t.Run("with options", func(t *testing.T) {
		a, err := NewAnswerer(embedder, retriever, generator,
			WithMatchThreshold(0.7),
			WithMatchCount(3),
			WithPoolSize(2),
			WithSystemPrompt("Be brief."),
			WithLogger(slog.Default()),
		)
		require.NoError(t, err)
		assert.Equal(t, float32(0.7), a.matchThreshold)
		assert.Equal(t, 3, a.matchCount)
		assert.Equal(t, 2, a.poolSize)
		assert.Equal(t, "Be brief.", a.systemPrompt)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		a, err := NewAnswerer(embedder, retriever, generator, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, a.logger)
	})

	t.Run("empty system prompt keeps default", func(t *testing.T) {
		a, err := NewAnswerer(embedder, retriever, generator, WithSystemPrompt("  "))
		require.NoError(t, err)
		assert.Equal(t, DefaultSystemPrompt, a.systemPrompt)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewAnswerer(embedder, retriever, generator, WithMatchCount(0))
		assert.Equal(t, ErrInvalidMatchCount, err)

		_, err = NewAnswerer(embedder, retriever, generator, WithMatchThreshold(1.5))
		assert.Equal(t, ErrInvalidMatchThreshold, err)

		_, err = NewAnswerer(embedder, retriever, generator, WithPoolSize(-1))
		assert.Equal(t, ErrInvalidPoolSize, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewAnswerer(nil, retriever, generator)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("nil retriever", func(t *testing.T) {
		_, err := NewAnswerer(embedder, nil, generator)
		assert.Equal(t, ErrRetrieverRequired, err)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := NewAnswerer(embedder, retriever, nil)
		assert.Equal(t, ErrGeneratorRequired, err)
	})
}

func TestAnswer_EndToEnd(t *testing.T) {
	a, embedder, retriever, generator := newTestAnswerer(t)

	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	}
	retriever.FindSimilarFunc = func(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
		return resultsFor("Polygon scales Ethereum."), nil
	}
	generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "Polygon aims to scale Ethereum via layer-2 rollups.", nil
	}

	answer, err := a.Answer(context.Background(), "What is the objective of polygon")
	require.NoError(t, err)
	assert.Equal(t, "Polygon aims to scale Ethereum via layer-2 rollups.", answer)

	assert.Equal(t, []float32{0.1, 0.2}, retriever.lastVector)
	assert.Equal(t, float32(0.5), retriever.lastThreshold)
	assert.Equal(t, 10, retriever.lastLimit)

	messages := generator.LastMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, ai.SystemMessage(DefaultSystemPrompt), messages[0])
	assert.Equal(t,
		`Context sections: "Polygon scales Ethereum.---`+"\n"+`" Question: "What is the objective of polygon" Answer as simple text:`,
		messages[1].Content)
}

func TestAnswer_NormalizesEmbeddingInputOnly(t *testing.T) {
	a, embedder, _, generator := newTestAnswerer(t)

	_, err := a.Answer(context.Background(), "What is\npolygon\n")
	require.NoError(t, err)

	texts := embedder.Texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "What is polygon ", texts[0])
	assert.NotContains(t, texts[0], "\n")

	assert.Contains(t, generator.LastMessages()[1].Content, "Question: \"What is\npolygon\n\"")
}

func TestAnswer_EmptyRetrieval(t *testing.T) {
	a, _, retriever, generator := newTestAnswerer(t)
	retriever.FindSimilarFunc = func(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
		return []*core.SearchResult{}, nil
	}

	answer, err := a.Answer(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultAnswer, answer)
	assert.Equal(t, `Context sections: "" Question: "Q" Answer as simple text:`, generator.LastMessages()[1].Content)
}

func TestAnswer_CustomRetrievalParameters(t *testing.T) {
	a, _, retriever, _ := newTestAnswerer(t, WithMatchThreshold(0.8), WithMatchCount(4))

	_, err := a.Answer(context.Background(), "Q")
	require.NoError(t, err)
	assert.Equal(t, float32(0.8), retriever.lastThreshold)
	assert.Equal(t, 4, retriever.lastLimit)
}

func TestAnswer_EmptyQuery(t *testing.T) {
	a, embedder, retriever, generator := newTestAnswerer(t)
	monitor := &recordingMonitor{}

	_, err := a.AnswerWithMonitor(context.Background(), " \n\t", monitor)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, embedder.CallCount())
	assert.Zero(t, retriever.CallCount())
	assert.Zero(t, generator.CallCount())
	assert.Equal(t, []string{"start", "failed"}, monitor.events)
	assert.Equal(t, StageStart, monitor.failedStage)
}

func TestAnswer_EmbeddingFailure(t *testing.T) {
	a, embedder, retriever, generator := newTestAnswerer(t)
	cause := errors.New("rate limited")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, cause
	}
	monitor := &recordingMonitor{}

	_, err := a.AnswerWithMonitor(context.Background(), "Q", monitor)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, retriever.CallCount())
	assert.Zero(t, generator.CallCount())
	assert.Equal(t, []string{"start", "failed"}, monitor.events)
	assert.Equal(t, StageEmbedded, monitor.failedStage)
}

func TestAnswer_EmptyEmbedding(t *testing.T) {
	a, embedder, retriever, _ := newTestAnswerer(t)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}

	_, err := a.Answer(context.Background(), "Q")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.ErrorIs(t, err, ai.ErrEmptyEmbedding)
	assert.Zero(t, retriever.CallCount())
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	a, _, retriever, generator := newTestAnswerer(t)
	cause := errors.New("function match_documents does not exist")
	retriever.FindSimilarFunc = func(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
		return nil, cause
	}
	monitor := &recordingMonitor{}

	_, err := a.AnswerWithMonitor(context.Background(), "Q", monitor)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, generator.CallCount())

	assert.Equal(t, []string{"start", "embedded", "failed"}, monitor.events)
	assert.Equal(t, StageRetrieved, monitor.failedStage)
	assert.ErrorIs(t, monitor.failedErr, ErrRetrievalFailed)
}

func TestAnswer_GenerationFailure(t *testing.T) {
	a, _, _, generator := newTestAnswerer(t)
	generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		return "", ai.ErrNoCompletion
	}
	monitor := &recordingMonitor{}

	answer, err := a.AnswerWithMonitor(context.Background(), "Q", monitor)
	assert.Empty(t, answer)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ai.ErrNoCompletion)
	assert.Equal(t, []string{"start", "embedded", "retrieved", "prompt-built", "failed"}, monitor.events)
	assert.Equal(t, StageAnswered, monitor.failedStage)
}

func TestAnswerWithMonitor_StageSequence(t *testing.T) {
	a, _, retriever, _ := newTestAnswerer(t)
	retriever.FindSimilarFunc = func(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
		return resultsFor("A"), nil
	}
	monitor := &recordingMonitor{}

	answer, err := a.AnswerWithMonitor(context.Background(), "Q", monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "embedded", "retrieved", "prompt-built", "answered"}, monitor.events)
	assert.Equal(t, answer, monitor.answer)
	require.Len(t, monitor.messages, 2)
}

func TestAnswer_WithBadgerStore(t *testing.T) {
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()

	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	texts := []string{"Polygon scales Ethereum.", "Solana uses proof of history."}
	vectors, err := embedder.EmbedTexts(ctx, texts)
	require.NoError(t, err)
	for i, text := range texts {
		_, err := repo.AddChunks(ctx, &core.Chunk{Content: text, Source: "docs", Vector: vectors[i]})
		require.NoError(t, err)
	}

	generator := mock.NewMockGenerator()
	a, err := NewAnswerer(embedder, repo, generator, WithMatchThreshold(0.99))
	require.NoError(t, err)

	// The mock embedder maps identical text to identical vectors, so asking
	// with a chunk's text retrieves exactly that chunk.
	_, err = a.Answer(ctx, "Polygon scales Ethereum.")
	require.NoError(t, err)

	user := generator.LastMessages()[1].Content
	assert.True(t, strings.HasPrefix(user, `Context sections: "Polygon scales Ethereum.---`))
	assert.NotContains(t, user, "Solana")
}

func TestAnswerAll(t *testing.T) {
	a, _, _, generator := newTestAnswerer(t, WithPoolSize(3))
	generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		user := messages[1].Content
		if strings.Contains(user, `Question: "q3"`) {
			return "", errors.New("boom")
		}
		start := strings.Index(user, `Question: "`) + len(`Question: "`)
		end := strings.Index(user[start:], `"`)
		return "answer to " + user[start:start+end], nil
	}

	queries := make([]string, 10)
	for i := range queries {
		queries[i] = fmt.Sprintf("q%d", i)
	}

	results, err := a.AnswerAll(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i, r := range results {
		assert.Equal(t, queries[i], r.Query)
		if i == 3 {
			assert.ErrorIs(t, r.Err, ErrGenerationFailed)
			assert.Empty(t, r.Answer)
			continue
		}
		require.NoError(t, r.Err)
		assert.Equal(t, "answer to "+queries[i], r.Answer)
	}
	assert.Equal(t, 10, generator.CallCount())
}

func TestAnswerAll_Empty(t *testing.T) {
	a, _, _, _ := newTestAnswerer(t)

	results, err := a.AnswerAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnswerAll_BoundedConcurrency(t *testing.T) {
	a, _, _, generator := newTestAnswerer(t, WithPoolSize(2))

	var mu sync.Mutex
	active, peak := 0, 0
	release := make(chan struct{})
	generator.GenerateFunc = func(ctx context.Context, messages []ai.Message) (string, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		<-release
		mu.Lock()
		active--
		mu.Unlock()
		return "ok", nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = a.AnswerAll(context.Background(), []string{"a", "b", "c", "d", "e"})
	}()
	for i := 0; i < 5; i++ {
		release <- struct{}{}
	}
	<-done

	assert.LessOrEqual(t, peak, 2)
}
