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


package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/storage"
)

const (
	// DefaultMatchThreshold is the minimum similarity passed to match_documents.
	DefaultMatchThreshold float32 = 0.5

	// DefaultMatchCount is the maximum number of chunks retrieved per query.
	DefaultMatchCount = 10

	// DefaultPoolSize bounds the number of queries answered concurrently by AnswerAll.
	DefaultPoolSize = 5
)

// Answerer answers questions from chunks retrieved by vector similarity.
type Answerer struct {
	embedder       ai.Embedder
	retriever      storage.VectorSearcher
	generator      ai.Generator
	matchThreshold float32
	matchCount     int
	systemPrompt   string
	poolSize       int
	logger         *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithMatchThreshold sets the minimum similarity of retrieved chunks.
// Default is 0.5.
func WithMatchThreshold(threshold float32) Option {
	return func(a *Answerer) error {
		if threshold < -1 || threshold > 1 {
			return ErrInvalidMatchThreshold
		}
		a.matchThreshold = threshold
		return nil
	}
}

// WithMatchCount sets the maximum number of retrieved chunks.
// Default is 10.
func WithMatchCount(count int) Option {
	return func(a *Answerer) error {
		if count <= 0 {
			return ErrInvalidMatchCount
		}
		a.matchCount = count
		return nil
	}
}

// WithSystemPrompt replaces the default persona. An empty prompt keeps the default.
func WithSystemPrompt(prompt string) Option {
	return func(a *Answerer) error {
		if strings.TrimSpace(prompt) != "" {
			a.systemPrompt = prompt
		}
		return nil
	}
}

// WithPoolSize sets the number of workers used by AnswerAll.
// Default is 5.
func WithPoolSize(size int) Option {
	return func(a *Answerer) error {
		if size <= 0 {
			return ErrInvalidPoolSize
		}
		a.poolSize = size
		return nil
	}
}

// NewAnswerer creates a new answerer from its three collaborators.
func NewAnswerer(
	embedder ai.Embedder,
	retriever storage.VectorSearcher,
	generator ai.Generator,
	opts ...Option,
) (*Answerer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	a := &Answerer{
		embedder:       embedder,
		retriever:      retriever,
		generator:      generator,
		matchThreshold: DefaultMatchThreshold,
		matchCount:     DefaultMatchCount,
		systemPrompt:   DefaultSystemPrompt,
		poolSize:       DefaultPoolSize,
		logger:         slog.Default().With("component", "answerer"),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Answer embeds the query, retrieves matching chunks and asks the model to
// answer from them.
func (a *Answerer) Answer(ctx context.Context, query string) (string, error) {
	return a.AnswerWithMonitor(ctx, query, nil)
}

// AnswerWithMonitor answers the query and reports each step to monitor.
// A failure at any step aborts the query; nothing is retried.
func (a *Answerer) AnswerWithMonitor(ctx context.Context, query string, monitor Monitor) (string, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	if strings.TrimSpace(query) == "" {
		monitor.Failed(StageStart, ErrEmptyQuery)
		return "", ErrEmptyQuery
	}

	// 1. Embed the normalized query
	vector, err := a.embedder.EmbedText(ctx, NormalizeQuery(query))
	if err == nil && len(vector) == 0 {
		err = ai.ErrEmptyEmbedding
	}
	if err != nil {
		a.logger.Error("error generating embedding for query", "err", err)
		err = fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
		monitor.Failed(StageEmbedded, err)
		return "", err
	}
	monitor.AfterEmbedding(vector)

	// 2. Retrieve matching chunks
	results, err := a.retriever.FindSimilar(ctx, vector, a.matchThreshold, a.matchCount)
	if err != nil {
		a.logger.Error("error fetching documents", "err", err)
		err = fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
		monitor.Failed(StageRetrieved, err)
		return "", err
	}
	monitor.AfterRetrieval(results)

	// 3. Assemble the prompt
	messages := BuildPrompt(a.systemPrompt, query, BuildContext(results))
	monitor.AfterPromptBuilt(messages)

	// 4. Ask the model
	answer, err := a.generator.Generate(ctx, messages)
	if err != nil {
		a.logger.Error("error processing query with language model", "err", err)
		err = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		monitor.Failed(StageAnswered, err)
		return "", err
	}

	a.logger.Debug("answered query", "chunks", len(results), "answerLength", len(answer))
	monitor.Finish(answer)
	return answer, nil
}
