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


// Package storage defines the vector-store abstraction used to retrieve and
// persist document chunks.
//
// Three interfaces are layered on top of each other:
//
//   - VectorSearcher: similarity search, the only capability the query path needs
//   - ChunkStore: search plus AddChunks, used by ingestion
//   - ChunkRepository: full record management, used by the local store and re-embedding
//
// # Backends
//
//   - storage/supabase: PostgREST RPC call of the match_documents function
//   - storage/postgres: direct SQL call of match_documents over sqlx and lib/pq
//   - storage/badger: local embedded store with brute-force cosine search
//
// Public constructors return interface types so callers stay independent of
// the backend:
//
//	repo, err := badger.NewRepository("/path/to/db")  // returns storage.ChunkRepository
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Thread Safety
//
// All implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeouts.
package storage
