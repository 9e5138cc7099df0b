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


// Package rag answers natural-language questions from a document corpus.
//
// An Answerer runs a fixed pipeline for each query:
//
//  1. Newlines in the query are replaced by spaces and the result is embedded
//  2. The vector store returns chunks above a similarity threshold (match_documents)
//  3. The chunks are joined into a context block and placed in a two-message prompt
//  4. The language model answers and its text is returned
//
// Every step runs once. A failure aborts the query and is returned wrapped in
// the sentinel of the failing step (ErrEmbeddingFailed, ErrRetrievalFailed,
// ErrGenerationFailed) so callers can test both the step and the cause with
// errors.Is.
//
// AnswerAll answers many independent queries on a bounded worker pool.
package rag
