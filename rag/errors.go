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

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when no generator is provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmptyQuery is returned for a query that is empty after trimming whitespace.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrEmbeddingFailed wraps failures of the embedding step.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrRetrievalFailed wraps failures of the match_documents retrieval step.
	ErrRetrievalFailed = errors.New("document retrieval failed")

	// ErrGenerationFailed wraps failures of the chat completion step.
	ErrGenerationFailed = errors.New("answer generation failed")

	// ErrInvalidMatchCount is returned for a non-positive match count.
	ErrInvalidMatchCount = errors.New("match count must be positive")

	// ErrInvalidMatchThreshold is returned for a threshold outside [-1, 1].
	ErrInvalidMatchThreshold = errors.New("match threshold must be between -1 and 1")

	// ErrInvalidPoolSize is returned for a non-positive worker pool size.
	ErrInvalidPoolSize = errors.New("pool size must be positive")
)
